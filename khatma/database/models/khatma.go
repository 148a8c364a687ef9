package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TotalHizbs is the number of reading units in one complete khatma.
const TotalHizbs = 60

// LegacyKhatmaID is the reserved scope used by the chat bot. It predates
// multi-tenancy and also carries the global change-version.
const LegacyKhatmaID = "global"

type Khatma struct {
	bun.BaseModel `bun:"table:khatmas,alias:k"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name,notnull"`
	AdminID     int64     `bun:"admin_id,nullzero"`
	Intention   string    `bun:"intention"`
	Deadline    time.Time `bun:"deadline,nullzero"`
	TotalCycles int       `bun:"total_cycles,notnull,default:0"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

// Version is the change-version token polled by clients. Greater value
// means the board changed since the caller last read it, nothing more.
func (k *Khatma) Version() int64 {
	return k.UpdatedAt.UnixMilli()
}
