package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/khatma-app/khatma/khatma/database/models"
)

func TestAssignRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	repo := NewHizbRepository(db)
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed", "")
	seedParticipant(t, db, 200, models.LegacyKhatmaID, "sara", "")

	require.NoError(t, repo.Assign(ctx, models.LegacyKhatmaID, 100, 5))

	err := repo.Assign(ctx, models.LegacyKhatmaID, 200, 5)
	require.ErrorIs(t, err, ErrHizbTaken)

	// The same participant cannot double-book the slot either.
	err = repo.Assign(ctx, models.LegacyKhatmaID, 100, 5)
	require.ErrorIs(t, err, ErrHizbTaken)
}

func TestAssignRejectsCompletedSlot(t *testing.T) {
	db := newTestDB(t)
	repo := NewHizbRepository(db)
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed", "")
	seedParticipant(t, db, 200, models.LegacyKhatmaID, "sara", "")

	require.NoError(t, repo.Assign(ctx, models.LegacyKhatmaID, 100, 5))
	finished, err := repo.MarkDone(ctx, models.LegacyKhatmaID, 100, 5, DefaultCyclePolicy())
	require.NoError(t, err)
	require.False(t, finished)

	// Completion frees the assignment row but the slot stays taken
	// until the cycle rolls over.
	err = repo.Assign(ctx, models.LegacyKhatmaID, 200, 5)
	require.ErrorIs(t, err, ErrHizbTaken)

	avail, err := repo.Available(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.NotContains(t, avail, 5)
}

func TestUnassignRequiresOwnership(t *testing.T) {
	db := newTestDB(t)
	repo := NewHizbRepository(db)
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed", "")
	seedParticipant(t, db, 200, models.LegacyKhatmaID, "sara", "")

	require.NoError(t, repo.Assign(ctx, models.LegacyKhatmaID, 100, 7))

	err := repo.Unassign(ctx, models.LegacyKhatmaID, 200, 7)
	require.ErrorIs(t, err, ErrNotOwned)

	require.NoError(t, repo.Unassign(ctx, models.LegacyKhatmaID, 100, 7))

	// Releasing twice reports not-owned, nothing else changes.
	err = repo.Unassign(ctx, models.LegacyKhatmaID, 100, 7)
	require.ErrorIs(t, err, ErrNotOwned)

	avail, err := repo.Available(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Contains(t, avail, 7)
}

func TestMarkDoneNotAssignedLeavesStateUntouched(t *testing.T) {
	db := newTestDB(t)
	repo := NewHizbRepository(db)
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed", "")
	seedParticipant(t, db, 200, models.LegacyKhatmaID, "sara", "")

	require.NoError(t, repo.Assign(ctx, models.LegacyKhatmaID, 100, 3))

	// Completing a slot someone else holds fails and records nothing.
	_, err := repo.MarkDone(ctx, models.LegacyKhatmaID, 200, 3, DefaultCyclePolicy())
	require.ErrorIs(t, err, ErrNotAssigned)

	board, err := repo.Board(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Equal(t, 1, board.ActiveCount)
	require.Equal(t, 0, board.CompletedCount)
}

func completeAllSlots(t *testing.T, repo HizbRepository, khatmaID string, participantID int64, policy CyclePolicy) bool {
	t.Helper()
	ctx := context.Background()

	var finished bool
	for h := 1; h <= models.TotalHizbs; h++ {
		require.NoError(t, repo.Assign(ctx, khatmaID, participantID, h))
		f, err := repo.MarkDone(ctx, khatmaID, participantID, h, policy)
		require.NoError(t, err)
		finished = f
	}
	return finished
}

func TestCycleRollOverLegacyPolicy(t *testing.T) {
	db := newTestDB(t)
	repo := NewHizbRepository(db)
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed", "1234")
	intention := &models.Intention{KhatmaID: models.LegacyKhatmaID, ParticipantID: 100, Name: "ahmed", Text: "دعاء", CreatedAt: time.Now()}
	_, err := db.NewInsert().Model(intention).Exec(ctx)
	require.NoError(t, err)

	require.Equal(t, 0, cycleCount(t, db, models.LegacyKhatmaID))
	finished := completeAllSlots(t, repo, models.LegacyKhatmaID, 100, LegacyCyclePolicy())
	require.True(t, finished)

	require.Equal(t, 1, cycleCount(t, db, models.LegacyKhatmaID))

	avail, err := repo.Available(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Len(t, avail, models.TotalHizbs)

	board, err := repo.Board(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Empty(t, board.Entries)

	// The strong reset wipes participants and the intention wall.
	participants, err := db.NewSelect().Model((*models.Participant)(nil)).
		Where("khatma_id = ?", models.LegacyKhatmaID).Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, participants)

	intentions, err := db.NewSelect().Model((*models.Intention)(nil)).
		Where("khatma_id = ?", models.LegacyKhatmaID).Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, intentions)
}

func TestCycleRollOverTenantPolicyKeepsParticipants(t *testing.T) {
	db := newTestDB(t)
	repo := NewHizbRepository(db)
	ctx := context.Background()

	seedKhatma(t, db, "abc123", "ختمة رمضان")
	seedParticipant(t, db, -500, "abc123", "ahmed", "1234")

	finished := completeAllSlots(t, repo, "abc123", -500, DefaultCyclePolicy())
	require.True(t, finished)

	require.Equal(t, 1, cycleCount(t, db, "abc123"))
	require.Equal(t, 0, cycleCount(t, db, models.LegacyKhatmaID))

	avail, err := repo.Available(ctx, "abc123")
	require.NoError(t, err)
	require.Len(t, avail, models.TotalHizbs)

	participants, err := db.NewSelect().Model((*models.Participant)(nil)).
		Where("khatma_id = ?", "abc123").Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, participants)
}

func TestMarkAllDone(t *testing.T) {
	db := newTestDB(t)
	repo := NewHizbRepository(db)
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed", "")

	for _, h := range []int{2, 9, 41} {
		require.NoError(t, repo.Assign(ctx, models.LegacyKhatmaID, 100, h))
	}

	hizbs, finished, err := repo.MarkAllDone(ctx, models.LegacyKhatmaID, 100, LegacyCyclePolicy())
	require.NoError(t, err)
	require.False(t, finished)
	require.Equal(t, []int{2, 9, 41}, hizbs)

	board, err := repo.Board(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Equal(t, 3, board.CompletedCount)
	require.Equal(t, 0, board.ActiveCount)

	// Nothing assigned anymore: the batch is a no-op.
	hizbs, finished, err = repo.MarkAllDone(ctx, models.LegacyKhatmaID, 100, LegacyCyclePolicy())
	require.NoError(t, err)
	require.False(t, finished)
	require.Empty(t, hizbs)
}

func TestUndoCompletion(t *testing.T) {
	db := newTestDB(t)
	repo := NewHizbRepository(db)
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed", "")

	require.NoError(t, repo.Assign(ctx, models.LegacyKhatmaID, 100, 11))
	_, err := repo.MarkDone(ctx, models.LegacyKhatmaID, 100, 11, DefaultCyclePolicy())
	require.NoError(t, err)

	require.NoError(t, repo.UndoCompletion(ctx, models.LegacyKhatmaID, 100, 11))

	mine, err := repo.ParticipantHizbs(ctx, models.LegacyKhatmaID, 100)
	require.NoError(t, err)
	require.Equal(t, []int{11}, mine)

	// Nothing left to undo.
	err = repo.UndoCompletion(ctx, models.LegacyKhatmaID, 100, 11)
	require.ErrorIs(t, err, ErrCompletionNotFound)
}

func TestUndoAfterRollOverFails(t *testing.T) {
	db := newTestDB(t)
	repo := NewHizbRepository(db)
	ctx := context.Background()

	seedKhatma(t, db, "abc123", "ختمة رمضان")
	seedParticipant(t, db, -500, "abc123", "ahmed", "")

	finished := completeAllSlots(t, repo, "abc123", -500, DefaultCyclePolicy())
	require.True(t, finished)

	// The roll-over cleared the completion rows; a finished cycle is
	// history.
	err := repo.UndoCompletion(ctx, "abc123", -500, 30)
	require.ErrorIs(t, err, ErrCompletionNotFound)
}

func TestResetBoardKeepsCycleCounter(t *testing.T) {
	db := newTestDB(t)
	repo := NewHizbRepository(db)
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed", "")

	require.NoError(t, repo.Assign(ctx, models.LegacyKhatmaID, 100, 1))
	_, err := repo.MarkDone(ctx, models.LegacyKhatmaID, 100, 1, DefaultCyclePolicy())
	require.NoError(t, err)
	require.NoError(t, repo.Assign(ctx, models.LegacyKhatmaID, 100, 2))

	require.NoError(t, repo.ResetBoard(ctx, models.LegacyKhatmaID, DefaultCyclePolicy()))

	require.Equal(t, 0, cycleCount(t, db, models.LegacyKhatmaID))

	avail, err := repo.Available(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Len(t, avail, models.TotalHizbs)
}

func TestMutationsBumpVersion(t *testing.T) {
	db := newTestDB(t)
	hizbs := NewHizbRepository(db)
	khatmas := NewKhatmaRepository(db)
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed", "")

	v0, err := khatmas.Version(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, hizbs.Assign(ctx, models.LegacyKhatmaID, 100, 4))

	v1, err := khatmas.Version(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Greater(t, v1, v0)

	// Reads alone do not move the version.
	_, err = hizbs.Board(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	_, err = hizbs.Available(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)

	v2, err := khatmas.Version(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Equal(t, v1, v2)

	time.Sleep(5 * time.Millisecond)
	_, err = hizbs.MarkDone(ctx, models.LegacyKhatmaID, 100, 4, DefaultCyclePolicy())
	require.NoError(t, err)

	v3, err := khatmas.Version(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Greater(t, v3, v2)
}

func TestTenantMutationBumpsLegacyVersion(t *testing.T) {
	db := newTestDB(t)
	hizbs := NewHizbRepository(db)
	khatmas := NewKhatmaRepository(db)
	ctx := context.Background()

	seedKhatma(t, db, "abc123", "ختمة رمضان")
	seedParticipant(t, db, -500, "abc123", "ahmed", "")

	legacy0, err := khatmas.Version(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, hizbs.Assign(ctx, "abc123", -500, 1))

	legacy1, err := khatmas.Version(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Greater(t, legacy1, legacy0)
}
