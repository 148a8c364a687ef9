package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/khatma-app/khatma/khatma/database/models"
)

var testDBCounter atomic.Int64

// newTestDB opens a private in-memory database with the full schema and
// the seeded legacy scope.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", testDBCounter.Add(1))
	sqldb, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	// A second connection to the same in-memory database would see a
	// fresh empty one once the first closes; keep exactly one.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, model := range []any{
		(*models.Khatma)(nil),
		(*models.Participant)(nil),
		(*models.HizbAssignment)(nil),
		(*models.CompletedHizb)(nil),
		(*models.Intention)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}
	for _, ddl := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_khatma_norm_name ON participants (khatma_id, norm_name)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_completed_khatma_hizb ON completed_hizbs (khatma_id, hizb)",
	} {
		_, err := db.ExecContext(ctx, ddl)
		require.NoError(t, err)
	}

	seedKhatma(t, db, models.LegacyKhatmaID, "ختمة العائلة")
	return db
}

func seedKhatma(t *testing.T, db *bun.DB, id, name string) {
	t.Helper()
	k := &models.Khatma{
		ID:        id,
		Name:      name,
		Deadline:  time.Now().AddDate(0, 0, 7),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_, err := db.NewInsert().Model(k).Exec(context.Background())
	require.NoError(t, err)
}

func seedParticipant(t *testing.T, db *bun.DB, id int64, khatmaID, name, pin string) {
	t.Helper()
	p := &models.Participant{
		ID:        id,
		KhatmaID:  khatmaID,
		FullName:  name,
		NormName:  name,
		PIN:       pin,
		CreatedAt: time.Now(),
	}
	_, err := db.NewInsert().Model(p).Exec(context.Background())
	require.NoError(t, err)
}

func cycleCount(t *testing.T, db *bun.DB, khatmaID string) int {
	t.Helper()
	k := new(models.Khatma)
	err := db.NewSelect().Model(k).Where("id = ?", khatmaID).Scan(context.Background())
	require.NoError(t, err)
	return k.TotalCycles
}
