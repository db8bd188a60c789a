package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuestionKind distinguishes free-text questions from fixed-choice ones.
type QuestionKind string

const (
	QuestionText   QuestionKind = "text"
	QuestionChoice QuestionKind = "choice"
)

// Question is one entry in a tenant's survey gate.
type Question struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	TenantID  uuid.UUID    `db:"tenant_id" json:"tenant_id"`
	Prompt    string       `db:"prompt" json:"prompt"`
	Kind      QuestionKind `db:"kind" json:"kind"`
	Choices   []string     `db:"-" json:"choices,omitempty"`
	Position  int          `db:"display_order" json:"position"`
	Active    bool         `db:"active" json:"active"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// Response is a single answer captured during one survey session.
type Response struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TenantID   uuid.UUID `db:"tenant_id" json:"tenant_id"`
	QuestionID uuid.UUID `db:"question_id" json:"question_id"`
	SessionID  uuid.UUID `db:"session_id" json:"session_id"`
	Email      *string   `db:"email" json:"email,omitempty"`
	Answer     string    `db:"answer" json:"answer"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// OptIn marks a recipient as having satisfied the survey gate for a tenant.
// Its presence allows skipping the survey on subsequent visits.
type OptIn struct {
	TenantID    uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Email       string    `db:"email" json:"email"`
	ConsentedAt time.Time `db:"consented_at" json:"consented_at"`
}
