package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/khatma-app/khatma/khatma/database/models"
)

func TestCreateKhatmaWithAdmin(t *testing.T) {
	db := newTestDB(t)
	repo := NewKhatmaRepository(db)
	ctx := context.Background()

	deadline := time.Now().AddDate(0, 0, 30)
	k, admin, err := repo.Create(ctx, "ختمة رمضان", "أحمد", "1234", "للوالدين", deadline)
	require.NoError(t, err)
	require.Len(t, k.ID, 6)
	require.Equal(t, "ختمة رمضان", k.Name)
	require.Equal(t, "للوالدين", k.Intention)
	require.NotNil(t, admin)
	require.Equal(t, admin.ID, k.AdminID)
	require.Equal(t, "web_admin", admin.Username)
	require.Equal(t, "احمد", admin.NormName)

	isAdmin, err := repo.IsAdmin(ctx, k.ID, admin.ID)
	require.NoError(t, err)
	require.True(t, isAdmin)

	isAdmin, err = repo.IsAdmin(ctx, k.ID, 999)
	require.NoError(t, err)
	require.False(t, isAdmin)

	// Unknown khatma or zero participant id are not errors, just "no".
	isAdmin, err = repo.IsAdmin(ctx, "zzzzzz", admin.ID)
	require.NoError(t, err)
	require.False(t, isAdmin)
	isAdmin, err = repo.IsAdmin(ctx, k.ID, 0)
	require.NoError(t, err)
	require.False(t, isAdmin)
}

func TestCreateKhatmaWithoutAdminOrDeadline(t *testing.T) {
	db := newTestDB(t)
	repo := NewKhatmaRepository(db)
	ctx := context.Background()

	k, admin, err := repo.Create(ctx, "ختمة", "", "", "", time.Time{})
	require.NoError(t, err)
	require.Nil(t, admin)
	require.Zero(t, k.AdminID)
	// Zero deadline defaults to a week out.
	require.WithinDuration(t, time.Now().AddDate(0, 0, 7), k.Deadline, time.Minute)
}

func TestUpdateKhatma(t *testing.T) {
	db := newTestDB(t)
	repo := NewKhatmaRepository(db)
	ctx := context.Background()

	intention := "دعاء"
	deadline := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	cycles := 3
	err := repo.Update(ctx, models.LegacyKhatmaID, KhatmaUpdate{
		Intention:   &intention,
		Deadline:    &deadline,
		TotalCycles: &cycles,
	})
	require.NoError(t, err)

	k, err := repo.GetByID(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Equal(t, "دعاء", k.Intention)
	require.Equal(t, 3, k.TotalCycles)
	require.WithinDuration(t, deadline, k.Deadline, time.Second)

	err = repo.Update(ctx, "zzzzzz", KhatmaUpdate{Intention: &intention})
	require.ErrorIs(t, err, ErrKhatmaNotFound)
}

func TestDeleteKhatmaPurgesEverything(t *testing.T) {
	db := newTestDB(t)
	khatmas := NewKhatmaRepository(db)
	hizbs := NewHizbRepository(db)
	intentions := NewIntentionRepository(db)
	ctx := context.Background()

	k, admin, err := khatmas.Create(ctx, "ختمة", "أحمد", "1234", "", time.Time{})
	require.NoError(t, err)

	require.NoError(t, hizbs.Assign(ctx, k.ID, admin.ID, 1))
	require.NoError(t, intentions.Add(ctx, k.ID, admin.ID, "أحمد", "دعاء"))

	require.NoError(t, khatmas.Delete(ctx, k.ID))

	_, err = khatmas.GetByID(ctx, k.ID)
	require.ErrorIs(t, err, ErrKhatmaNotFound)

	for _, model := range []any{
		(*models.Participant)(nil),
		(*models.HizbAssignment)(nil),
		(*models.Intention)(nil),
	} {
		count, err := db.NewSelect().Model(model).Where("khatma_id = ?", k.ID).Count(ctx)
		require.NoError(t, err)
		require.Zero(t, count)
	}
}

func TestListOrdersByRecentActivity(t *testing.T) {
	db := newTestDB(t)
	khatmas := NewKhatmaRepository(db)
	hizbs := NewHizbRepository(db)
	ctx := context.Background()

	first, _, err := khatmas.Create(ctx, "الأولى", "", "", "", time.Time{})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, _, err := khatmas.Create(ctx, "الثانية", "سارة", "1234", "", time.Time{})
	require.NoError(t, err)

	rows, err := khatmas.List(ctx, 10, 0)
	require.NoError(t, err)
	// Legacy seed row plus the two created above.
	require.Len(t, rows, 3)
	require.Equal(t, second.ID, rows[0].ID)

	// Activity on the first khatma floats it past the second. The bump
	// stamps the legacy row with the same instant, so only assert that
	// the idle khatma sank to the bottom.
	time.Sleep(5 * time.Millisecond)
	seedParticipant(t, db, -900, first.ID, "ahmed", "")
	require.NoError(t, hizbs.Assign(ctx, first.ID, -900, 1))

	rows, err = khatmas.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, second.ID, rows[2].ID)
	for _, row := range rows {
		if row.ID == first.ID {
			require.Equal(t, 1, row.ParticipantCount)
		}
	}

	stats, err := khatmas.GlobalStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Khatmas)
	require.Equal(t, 2, stats.Participants)
}
