package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/khatma-app/khatma/khatma/database/repositories"
)

func TestClaimRejectsOutOfRange(t *testing.T) {
	db := newTestDB(t)
	svc := NewBoardService(repositories.NewHizbRepository(db), repositories.NewKhatmaRepository(db))
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed")

	for _, hizb := range []int{0, -1, 61, 1000} {
		err := svc.Claim(ctx, "", 100, hizb)
		require.ErrorIs(t, err, ErrInvalidHizb, "hizb %d", hizb)
		err = svc.Release(ctx, "", 100, hizb)
		require.ErrorIs(t, err, ErrInvalidHizb, "hizb %d", hizb)
		_, err = svc.Complete(ctx, "", 100, hizb)
		require.ErrorIs(t, err, ErrInvalidHizb, "hizb %d", hizb)
		err = svc.Undo(ctx, "", 100, hizb)
		require.ErrorIs(t, err, ErrInvalidHizb, "hizb %d", hizb)
	}

	require.NoError(t, svc.Claim(ctx, "", 100, 1))
	require.NoError(t, svc.Claim(ctx, "", 100, 60))
}

func TestEmptyScopeMeansLegacy(t *testing.T) {
	db := newTestDB(t)
	svc := NewBoardService(repositories.NewHizbRepository(db), repositories.NewKhatmaRepository(db))
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed")

	require.NoError(t, svc.Claim(ctx, "", 100, 7))

	// The explicit legacy id and the empty id address the same board.
	board, err := svc.Board(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	require.Equal(t, 7, board.Entries[0].Hizb)

	err = svc.Claim(ctx, models.LegacyKhatmaID, 100, 7)
	require.ErrorIs(t, err, repositories.ErrHizbTaken)

	mine, err := svc.ParticipantHizbs(ctx, "", 100)
	require.NoError(t, err)
	require.Equal(t, []int{7}, mine)
}

func TestCompleteReportsCycleFinish(t *testing.T) {
	db := newTestDB(t)
	svc := NewBoardService(repositories.NewHizbRepository(db), repositories.NewKhatmaRepository(db))
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed")

	for h := 1; h < models.TotalHizbs; h++ {
		require.NoError(t, svc.Claim(ctx, "", 100, h))
		res, err := svc.Complete(ctx, "", 100, h)
		require.NoError(t, err)
		require.False(t, res.CycleFinished)
		require.Equal(t, []int{h}, res.Hizbs)
	}

	require.NoError(t, svc.Claim(ctx, "", 100, models.TotalHizbs))
	res, err := svc.Complete(ctx, "", 100, models.TotalHizbs)
	require.NoError(t, err)
	require.True(t, res.CycleFinished)
}

func TestCompleteAllEmpty(t *testing.T) {
	db := newTestDB(t)
	svc := NewBoardService(repositories.NewHizbRepository(db), repositories.NewKhatmaRepository(db))
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed")

	res, err := svc.CompleteAll(ctx, "", 100)
	require.NoError(t, err)
	require.Empty(t, res.Hizbs)
	require.False(t, res.CycleFinished)
}

func TestVersionAdvancesWithBoard(t *testing.T) {
	db := newTestDB(t)
	svc := NewBoardService(repositories.NewHizbRepository(db), repositories.NewKhatmaRepository(db))
	ctx := context.Background()

	seedParticipant(t, db, 100, models.LegacyKhatmaID, "ahmed")

	v0, err := svc.Version(ctx, "")
	require.NoError(t, err)
	require.Positive(t, v0)

	v1, err := svc.Version(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Equal(t, v0, v1)
}
