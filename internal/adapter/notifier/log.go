package notifier

import (
	"context"
	"log/slog"

	"github.com/promogate/promogate/internal/domain"
	"github.com/promogate/promogate/internal/pkg/pii"
)

// LogNotifier writes grant notifications to the application log. It stands in
// for the email channel in local development and in deployments without a
// Postmark token.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

func (n *LogNotifier) GrantIssued(ctx context.Context, tenant *domain.Tenant, offer *domain.Offer, grant *domain.Grant) error {
	n.logger.Info("grant issued",
		"tenant", tenant.Slug,
		"offer", offer.Title,
		"recipient", pii.MaskEmailPtr(grant.Recipient),
		"code", grant.Code,
	)
	return nil
}
