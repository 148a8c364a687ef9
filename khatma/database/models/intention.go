package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Intention struct {
	bun.BaseModel `bun:"table:intentions,alias:i"`

	ID            int64     `bun:"id,pk,autoincrement"`
	KhatmaID      string    `bun:"khatma_id"`
	ParticipantID int64     `bun:"participant_id,nullzero"`
	Name          string    `bun:"name,notnull"`
	Text          string    `bun:"text,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
