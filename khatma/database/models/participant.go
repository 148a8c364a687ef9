package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Participant is one human inside one khatma. IDs are either the numeric
// id supplied by the chat platform, or a generated negative synthetic id
// for web-only joins. FullName keeps the text exactly as the user typed
// it; NormName is the normalized comparison key and is unique per khatma.
type Participant struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID        int64     `bun:"id,pk"`
	KhatmaID  string    `bun:"khatma_id,notnull"`
	FullName  string    `bun:"full_name,notnull"`
	NormName  string    `bun:"norm_name,notnull"`
	Username  string    `bun:"username"`
	PIN       string    `bun:"pin"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ParticipantActivity is the per-participant board summary used by status
// views and the dedupe sweep.
type ParticipantActivity struct {
	ID        int64  `bun:"id"`
	FullName  string `bun:"full_name"`
	PIN       string `bun:"pin"`
	Active    int    `bun:"active_count"`
	Completed int    `bun:"completed_count"`
}
