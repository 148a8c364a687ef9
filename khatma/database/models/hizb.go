package models

import (
	"time"

	"github.com/uptrace/bun"
)

// HizbAssignment is an active claim on one hizb. The unique key on
// (khatma_id, hizb) is what makes racing claims safe: the store accepts
// exactly one insert, every other writer gets a constraint violation.
type HizbAssignment struct {
	bun.BaseModel `bun:"table:hizb_assignments,alias:ha"`

	KhatmaID      string    `bun:"khatma_id,pk"`
	Hizb          int       `bun:"hizb,pk"`
	ParticipantID int64     `bun:"participant_id,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// CompletedHizb records a finished reading for the current cycle only.
// Rows are deleted wholesale on cycle roll-over; there is no history
// across cycles.
type CompletedHizb struct {
	bun.BaseModel `bun:"table:completed_hizbs,alias:ch"`

	ID            int64     `bun:"id,pk,autoincrement"`
	KhatmaID      string    `bun:"khatma_id,notnull"`
	Hizb          int       `bun:"hizb,notnull"`
	ParticipantID int64     `bun:"participant_id,notnull"`
	CompletedAt   time.Time `bun:"completed_at,notnull,default:current_timestamp"`
}

type HizbState string

const (
	HizbAvailable HizbState = "available"
	HizbActive    HizbState = "active"
	HizbCompleted HizbState = "completed"
)
