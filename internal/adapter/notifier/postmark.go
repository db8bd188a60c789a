package notifier

import (
	"context"
	"fmt"
	"html"

	"github.com/mrz1836/postmark"
	"github.com/promogate/promogate/internal/domain"
)

// PostmarkNotifier delivers grant notifications over Postmark's transactional
// API. Callers treat delivery as best-effort; a failed send is logged by the
// use case and never fails the issuance.
type PostmarkNotifier struct {
	client *postmark.Client
	sender string
}

// NewPostmarkNotifier creates a Postmark-backed notifier.
func NewPostmarkNotifier(serverToken, accountToken, sender string) (*PostmarkNotifier, error) {
	if serverToken == "" {
		return nil, fmt.Errorf("postmark server token is required")
	}
	if sender == "" {
		return nil, fmt.Errorf("sender email is required")
	}
	return &PostmarkNotifier{
		client: postmark.NewClient(serverToken, accountToken),
		sender: sender,
	}, nil
}

// GrantIssued emails the coupon code to the recipient.
func (n *PostmarkNotifier) GrantIssued(ctx context.Context, tenant *domain.Tenant, offer *domain.Offer, grant *domain.Grant) error {
	if grant.Recipient == nil {
		return nil
	}

	body := fmt.Sprintf(
		`<p>Hi,</p><p>Here is your coupon for <strong>%s</strong> at %s:</p><p style="font-size:1.5em"><code>%s</code></p>`,
		html.EscapeString(offer.Title),
		html.EscapeString(tenant.Name),
		html.EscapeString(grant.Code),
	)
	if grant.ExpiresAt != nil {
		body += fmt.Sprintf(`<p>Valid until %s.</p>`, grant.ExpiresAt.Format("January 2, 2006"))
	}

	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:     n.sender,
		To:       *grant.Recipient,
		Subject:  fmt.Sprintf("Your %s coupon from %s", offer.Title, tenant.Name),
		Tag:      "grant-issued",
		HTMLBody: body,
	})
	if err != nil {
		return fmt.Errorf("failed to send grant email: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}
	return nil
}
