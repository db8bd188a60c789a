package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/promogate/promogate/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AnswerInput is one submitted survey answer.
type AnswerInput struct {
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
}

// SurveyUseCase serves the survey gate: question listing, answer submission
// and opt-in tracking.
type SurveyUseCase struct {
	newScope domain.ScopeFactory
	logger   *slog.Logger
}

// NewSurveyUseCase creates a new SurveyUseCase.
func NewSurveyUseCase(newScope domain.ScopeFactory, logger *slog.Logger) *SurveyUseCase {
	return &SurveyUseCase{
		newScope: newScope,
		logger:   logger.With("component", "survey"),
	}
}

// Questions returns the tenant's active questions in display order.
func (uc *SurveyUseCase) Questions(ctx context.Context, tenant *domain.Tenant) ([]domain.Question, error) {
	scope := uc.newScope(tenant.ID)
	questions, err := scope.Surveys().ListQuestions(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// Submit validates and stores one survey session's answers. When an email is
// supplied, the submission also records the survey-gate opt-in that lets the
// recipient skip the survey on later visits.
func (uc *SurveyUseCase) Submit(ctx context.Context, tenant *domain.Tenant, email *string, answers []AnswerInput) (uuid.UUID, error) {
	if len(answers) == 0 {
		return uuid.Nil, fmt.Errorf("%w: no answers submitted", domain.ErrValidation)
	}
	if email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*email))
		if !emailPattern.MatchString(normalized) {
			return uuid.Nil, fmt.Errorf("%w: invalid email address", domain.ErrValidation)
		}
		email = &normalized
	}

	scope := uc.newScope(tenant.ID)
	questions, err := scope.Surveys().ListQuestions(ctx, true)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to list questions: %w", err)
	}

	byID := make(map[uuid.UUID]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	now := time.Now().UTC()
	sessionID := uuid.New()
	responses := make([]domain.Response, 0, len(answers))
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return uuid.Nil, fmt.Errorf("%w: unknown question %s", domain.ErrValidation, a.QuestionID)
		}
		answer := strings.TrimSpace(a.Answer)
		if answer == "" {
			return uuid.Nil, fmt.Errorf("%w: empty answer for question %s", domain.ErrValidation, a.QuestionID)
		}
		if q.Kind == domain.QuestionChoice && !slices.Contains(q.Choices, answer) {
			return uuid.Nil, fmt.Errorf("%w: answer %q is not a choice for question %s", domain.ErrValidation, answer, a.QuestionID)
		}
		responses = append(responses, domain.Response{
			ID:         uuid.New(),
			TenantID:   tenant.ID,
			QuestionID: a.QuestionID,
			SessionID:  sessionID,
			Email:      email,
			Answer:     answer,
			CreatedAt:  now,
		})
	}

	if err := scope.Surveys().InsertResponses(ctx, responses); err != nil {
		return uuid.Nil, fmt.Errorf("failed to store responses: %w", err)
	}

	if email != nil {
		if err := scope.Surveys().UpsertOptIn(ctx, *email, now); err != nil {
			return uuid.Nil, fmt.Errorf("failed to record opt-in: %w", err)
		}
	}

	return sessionID, nil
}

// HasOptIn reports whether the email already passed the survey gate.
func (uc *SurveyUseCase) HasOptIn(ctx context.Context, tenant *domain.Tenant, email string) (bool, error) {
	scope := uc.newScope(tenant.ID)
	ok, err := scope.Surveys().HasOptIn(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return false, fmt.Errorf("failed to check opt-in: %w", err)
	}
	return ok, nil
}
