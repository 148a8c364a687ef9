package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/khatma-app/khatma/khatma/database/repositories"
)

func TestListFuzzyRanking(t *testing.T) {
	db := newTestDB(t)
	svc := NewKhatmaService(repositories.NewKhatmaRepository(db))
	ctx := context.Background()

	names := []string{"ختمة رمضان", "ختمة العيد", "ramadan family"}
	for _, name := range names {
		_, _, err := svc.Create(ctx, name, "", "", "", time.Time{})
		require.NoError(t, err)
	}

	// Empty query: plain recency listing, legacy seed included.
	rows, err := svc.List(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	rows, err = svc.List(ctx, "ramadan", 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "ramadan family", rows[0].Name)

	rows, err = svc.List(ctx, "رمضان", 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "ختمة رمضان", rows[0].Name)

	// Offset past the matches is an empty page, not an error.
	rows, err = svc.List(ctx, "ramadan", 10, 5)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestSettingsUpdates(t *testing.T) {
	db := newTestDB(t)
	svc := NewKhatmaService(repositories.NewKhatmaRepository(db))
	ctx := context.Background()

	k, admin, err := svc.Create(ctx, "ختمة", "سارة", "1234", "", time.Time{})
	require.NoError(t, err)

	require.NoError(t, svc.SetIntention(ctx, k.ID, "للوالدين"))
	deadline := time.Now().AddDate(0, 1, 0)
	require.NoError(t, svc.SetDeadline(ctx, k.ID, deadline))
	require.NoError(t, svc.SetTotalCycles(ctx, k.ID, 5))

	got, err := svc.Get(ctx, k.ID)
	require.NoError(t, err)
	require.Equal(t, "للوالدين", got.Intention)
	require.Equal(t, 5, got.TotalCycles)
	require.WithinDuration(t, deadline, got.Deadline, time.Second)

	isAdmin, err := svc.IsAdmin(ctx, k.ID, admin.ID)
	require.NoError(t, err)
	require.True(t, isAdmin)

	// Empty id resolves to the legacy scope.
	legacy, err := svc.Get(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "ختمة العائلة", legacy.Name)
}
