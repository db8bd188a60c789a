package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/promogate/promogate/internal/domain"
)

// SurveyRepository implements domain.SurveyRepository on a tenant scope.
type SurveyRepository struct {
	scope *Scope
}

// questionRow carries the pq array type that domain.Question keeps as a plain
// slice.
type questionRow struct {
	ID        uuid.UUID           `db:"id"`
	TenantID  uuid.UUID           `db:"tenant_id"`
	Prompt    string              `db:"prompt"`
	Kind      domain.QuestionKind `db:"kind"`
	Choices   pq.StringArray      `db:"choices"`
	Position  int                 `db:"display_order"`
	Active    bool                `db:"active"`
	CreatedAt time.Time           `db:"created_at"`
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:        r.ID,
		TenantID:  r.TenantID,
		Prompt:    r.Prompt,
		Kind:      r.Kind,
		Choices:   []string(r.Choices),
		Position:  r.Position,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
}

func (r *SurveyRepository) ListQuestions(ctx context.Context, activeOnly bool) ([]domain.Question, error) {
	query := `
		SELECT id, tenant_id, prompt, kind, choices, display_order, active, created_at
		FROM questions
	`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY display_order ASC, created_at ASC`

	var rows []questionRow
	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &rows, query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	questions := make([]domain.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, row.toDomain())
	}
	return questions, nil
}

func (r *SurveyRepository) CreateQuestion(ctx context.Context, q *domain.Question) error {
	query := `
		INSERT INTO questions (id, tenant_id, prompt, kind, choices, display_order, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	return r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			q.ID, q.TenantID, q.Prompt, q.Kind, pq.StringArray(q.Choices), q.Position, q.Active, q.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert question: %w", err)
		}
		return nil
	})
}

func (r *SurveyRepository) UpdateQuestion(ctx context.Context, q *domain.Question) error {
	query := `
		UPDATE questions
		SET prompt = $2, kind = $3, choices = $4, display_order = $5, active = $6
		WHERE id = $1
	`

	return r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query,
			q.ID, q.Prompt, q.Kind, pq.StringArray(q.Choices), q.Position, q.Active)
		if err != nil {
			return fmt.Errorf("failed to update question: %w", err)
		}
		return requireRow(res)
	})
}

func (r *SurveyRepository) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	return r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete question: %w", err)
		}
		return requireRow(res)
	})
}

func (r *SurveyRepository) InsertResponses(ctx context.Context, responses []domain.Response) error {
	if len(responses) == 0 {
		return nil
	}
	query := `
		INSERT INTO responses (id, tenant_id, question_id, session_id, email, answer, created_at)
		VALUES (:id, :tenant_id, :question_id, :session_id, :email, :answer, :created_at)
	`

	return r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, responses); err != nil {
			return fmt.Errorf("failed to insert responses: %w", err)
		}
		return nil
	})
}

func (r *SurveyRepository) UpsertOptIn(ctx context.Context, email string, consentedAt time.Time) error {
	query := `
		INSERT INTO opt_ins (tenant_id, email, consented_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, email) DO UPDATE SET consented_at = EXCLUDED.consented_at
	`

	return r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, query, r.scope.tenantID, email, consentedAt); err != nil {
			return fmt.Errorf("failed to upsert opt-in: %w", err)
		}
		return nil
	})
}

func (r *SurveyRepository) HasOptIn(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM opt_ins WHERE email = $1)`

	var exists bool
	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &exists, query, email)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check opt-in: %w", err)
	}
	return exists, nil
}

func (r *SurveyRepository) ListOptIns(ctx context.Context) ([]domain.OptIn, error) {
	query := `SELECT tenant_id, email, consented_at FROM opt_ins ORDER BY consented_at DESC`

	var optIns []domain.OptIn
	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &optIns, query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list opt-ins: %w", err)
	}
	return optIns, nil
}
