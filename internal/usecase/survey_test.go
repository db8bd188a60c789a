package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/promogate/promogate/internal/domain"
	"github.com/promogate/promogate/internal/domain/mocks"
)

func seedQuestions(scope *mocks.MockScope) (text, choice domain.Question) {
	text = domain.Question{
		ID: uuid.New(), TenantID: scope.ID, Prompt: "How did you hear about us?",
		Kind: domain.QuestionText, Position: 1, Active: true,
	}
	choice = domain.Question{
		ID: uuid.New(), TenantID: scope.ID, Prompt: "Visit frequency?",
		Kind: domain.QuestionChoice, Choices: []string{"weekly", "monthly"}, Position: 2, Active: true,
	}
	inactive := domain.Question{
		ID: uuid.New(), TenantID: scope.ID, Prompt: "Retired question",
		Kind: domain.QuestionText, Position: 3, Active: false,
	}
	scope.SurveyRepo.Questions = append(scope.SurveyRepo.Questions, text, choice, inactive)
	return text, choice
}

func TestSurveyUseCase(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("questions lists active only in order", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		seedQuestions(scope)
		uc := NewSurveyUseCase(staticScope(scope), logger)

		questions, err := uc.Questions(context.Background(), tenant)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(questions) != 2 {
			t.Fatalf("expected 2 active questions, got %d", len(questions))
		}
		if questions[0].Position > questions[1].Position {
			t.Error("expected questions in display order")
		}
	})

	t.Run("submit stores responses and records opt-in", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		text, choice := seedQuestions(scope)
		uc := NewSurveyUseCase(staticScope(scope), logger)

		email := "Visitor@Example.com"
		sessionID, err := uc.Submit(context.Background(), tenant, &email, []AnswerInput{
			{QuestionID: text.ID, Answer: "a friend"},
			{QuestionID: choice.ID, Answer: "weekly"},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sessionID == uuid.Nil {
			t.Error("expected a session id")
		}
		if len(scope.SurveyRepo.Responses) != 2 {
			t.Fatalf("expected 2 stored responses, got %d", len(scope.SurveyRepo.Responses))
		}
		for _, r := range scope.SurveyRepo.Responses {
			if r.SessionID != sessionID {
				t.Error("expected all responses to share the session id")
			}
		}
		if _, ok := scope.SurveyRepo.OptIns["visitor@example.com"]; !ok {
			t.Error("expected a normalized opt-in record")
		}
	})

	t.Run("submit without email records no opt-in", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		text, _ := seedQuestions(scope)
		uc := NewSurveyUseCase(staticScope(scope), logger)

		if _, err := uc.Submit(context.Background(), tenant, nil, []AnswerInput{
			{QuestionID: text.ID, Answer: "a friend"},
		}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(scope.SurveyRepo.OptIns) != 0 {
			t.Error("expected no opt-in without an email")
		}
	})

	t.Run("submit validation failures", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		text, choice := seedQuestions(scope)
		uc := NewSurveyUseCase(staticScope(scope), logger)
		badEmail := "not-an-email"

		tests := []struct {
			name    string
			email   *string
			answers []AnswerInput
		}{
			{"no answers", nil, nil},
			{"invalid email", &badEmail, []AnswerInput{{QuestionID: text.ID, Answer: "x"}}},
			{"unknown question", nil, []AnswerInput{{QuestionID: uuid.New(), Answer: "x"}}},
			{"empty answer", nil, []AnswerInput{{QuestionID: text.ID, Answer: "  "}}},
			{"answer not a choice", nil, []AnswerInput{{QuestionID: choice.ID, Answer: "daily"}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := uc.Submit(context.Background(), tenant, tt.email, tt.answers); !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
			})
		}
		if len(scope.SurveyRepo.Responses) != 0 {
			t.Error("expected no responses stored on validation failure")
		}
	})

	t.Run("has opt-in normalizes the email", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		text, _ := seedQuestions(scope)
		uc := NewSurveyUseCase(staticScope(scope), logger)

		email := "visitor@example.com"
		if _, err := uc.Submit(context.Background(), tenant, &email, []AnswerInput{
			{QuestionID: text.ID, Answer: "a friend"},
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}

		ok, err := uc.HasOptIn(context.Background(), tenant, "  VISITOR@example.com ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ok {
			t.Error("expected opt-in lookup to match after normalization")
		}
	})
}
