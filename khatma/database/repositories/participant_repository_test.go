package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/khatma-app/khatma/khatma/database/models"
)

func TestResolveOrCreateNewParticipant(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()

	p, outcome, err := repo.ResolveOrCreate(ctx, "", "أحمد محمد", "1234")
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)
	require.Negative(t, p.ID)
	require.Equal(t, models.LegacyKhatmaID, p.KhatmaID)
	require.Equal(t, "أحمد محمد", p.FullName)
	require.Equal(t, "احمد محمد", p.NormName)
	require.Equal(t, "1234", p.PIN)
}

func TestResolveOrCreateMatchesNameVariants(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()

	first, outcome, err := repo.ResolveOrCreate(ctx, "", "أحمد", "9999")
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)

	// Hamza shape, bare alif, extra whitespace: same person.
	for _, variant := range []string{"احمد", "إحمد", "  أحمد  "} {
		p, outcome, err := repo.ResolveOrCreate(ctx, "", variant, "9999")
		require.NoError(t, err)
		require.Equal(t, OutcomeSuccess, outcome, "variant %q", variant)
		require.Equal(t, first.ID, p.ID, "variant %q", variant)
	}

	count, err := db.NewSelect().Model((*models.Participant)(nil)).
		Where("khatma_id = ?", models.LegacyKhatmaID).Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestResolveOrCreateAdoptsPIN(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()

	first, _, err := repo.ResolveOrCreate(ctx, "", "سارة", "")
	require.NoError(t, err)
	require.Empty(t, first.PIN)

	// An unprotected record matches anyone; the first pin offered sticks.
	p, outcome, err := repo.ResolveOrCreate(ctx, "", "سارة", "4321")
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, outcome)
	require.Equal(t, first.ID, p.ID)
	require.Equal(t, "4321", p.PIN)

	// From now on the pin is enforced.
	_, outcome, err = repo.ResolveOrCreate(ctx, "", "سارة", "0000")
	require.NoError(t, err)
	require.Equal(t, OutcomeWrongPIN, outcome)

	p, outcome, err = repo.ResolveOrCreate(ctx, "", "سارة", "4321")
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, outcome)
	require.Equal(t, first.ID, p.ID)
}

func TestResolveOrCreateWrongPIN(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()

	_, _, err := repo.ResolveOrCreate(ctx, "", "خالد", "1111")
	require.NoError(t, err)

	p, outcome, err := repo.ResolveOrCreate(ctx, "", "خالد", "2222")
	require.NoError(t, err)
	require.Equal(t, OutcomeWrongPIN, outcome)
	require.Nil(t, p)

	// Empty supplied pin against a protected record fails too.
	_, outcome, err = repo.ResolveOrCreate(ctx, "", "خالد", "")
	require.NoError(t, err)
	require.Equal(t, OutcomeWrongPIN, outcome)
}

func TestResolveOrCreateEmptyName(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()

	for _, name := range []string{"", "   ", "\t\n"} {
		_, _, err := repo.ResolveOrCreate(ctx, "", name, "1234")
		require.ErrorIs(t, err, ErrEmptyName, "name %q", name)
	}
}

func TestResolveOrCreateScopedPerKhatma(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()

	seedKhatma(t, db, "abc123", "ختمة رمضان")

	legacy, _, err := repo.ResolveOrCreate(ctx, "", "أحمد", "1234")
	require.NoError(t, err)

	// Same name in another khatma is a different participant with its
	// own pin.
	tenant, outcome, err := repo.ResolveOrCreate(ctx, "abc123", "أحمد", "5678")
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)
	require.NotEqual(t, legacy.ID, tenant.ID)
	require.Equal(t, "abc123", tenant.KhatmaID)
}

func TestUpsertChatUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertChatUser(ctx, 42, "أحمد", "ahmed_dz"))

	p, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "أحمد", p.FullName)
	require.Equal(t, "احمد", p.NormName)
	require.Equal(t, "ahmed_dz", p.Username)

	// Re-registering refreshes the profile in place.
	require.NoError(t, repo.UpsertChatUser(ctx, 42, "أحمد الجديد", "ahmed_new"))

	p, err = repo.GetByID(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "أحمد الجديد", p.FullName)
	require.Equal(t, "ahmed_new", p.Username)

	count, err := db.NewSelect().Model((*models.Participant)(nil)).Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestUpdateNameRenormalizes(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()

	p, _, err := repo.ResolveOrCreate(ctx, "", "أحمد", "1234")
	require.NoError(t, err)

	require.NoError(t, repo.UpdateName(ctx, p.ID, "أحمد الصغير"))

	// The renamed record resolves under the new name with the old pin.
	renamed, outcome, err := repo.ResolveOrCreate(ctx, "", "احمد الصغير", "1234")
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, outcome)
	require.Equal(t, p.ID, renamed.ID)

	err = repo.UpdateName(ctx, p.ID, "   ")
	require.ErrorIs(t, err, ErrEmptyName)
}

func TestResetPINReopensRecord(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	ctx := context.Background()

	p, _, err := repo.ResolveOrCreate(ctx, "", "سارة", "1234")
	require.NoError(t, err)

	require.NoError(t, repo.ResetPIN(ctx, p.ID))

	// Cleared pin means the next joiner claims the record again.
	got, outcome, err := repo.ResolveOrCreate(ctx, "", "سارة", "")
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, outcome)
	require.Equal(t, p.ID, got.ID)
}

func TestResetPINBumpsOwningKhatma(t *testing.T) {
	db := newTestDB(t)
	participants := NewParticipantRepository(db)
	khatmas := NewKhatmaRepository(db)
	ctx := context.Background()

	seedKhatma(t, db, "abc123", "ختمة رمضان")
	seedParticipant(t, db, -500, "abc123", "ahmed", "1234")

	v0, err := khatmas.Version(ctx, "abc123")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, participants.ResetPIN(ctx, -500))

	v1, err := khatmas.Version(ctx, "abc123")
	require.NoError(t, err)
	require.Greater(t, v1, v0)

	err = participants.ResetPIN(ctx, 999)
	require.ErrorIs(t, err, ErrParticipantMissing)
}

func TestUpsertChatUserBumpsVersion(t *testing.T) {
	db := newTestDB(t)
	participants := NewParticipantRepository(db)
	khatmas := NewKhatmaRepository(db)
	ctx := context.Background()

	v0, err := khatmas.Version(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, participants.UpsertChatUser(ctx, 42, "أحمد", "ahmed_dz"))

	v1, err := khatmas.Version(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Greater(t, v1, v0)

	// A display-name refresh alone changes what the board renders, so
	// it moves the version too.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, participants.UpsertChatUser(ctx, 42, "أحمد الجديد", "ahmed_dz"))

	v2, err := khatmas.Version(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Greater(t, v2, v1)
}

func TestRemoveDropsOwnedRows(t *testing.T) {
	db := newTestDB(t)
	participants := NewParticipantRepository(db)
	hizbs := NewHizbRepository(db)
	ctx := context.Background()

	p, _, err := participants.ResolveOrCreate(ctx, "", "أحمد", "1234")
	require.NoError(t, err)

	require.NoError(t, hizbs.Assign(ctx, models.LegacyKhatmaID, p.ID, 1))
	require.NoError(t, hizbs.Assign(ctx, models.LegacyKhatmaID, p.ID, 2))
	_, err = hizbs.MarkDone(ctx, models.LegacyKhatmaID, p.ID, 2, DefaultCyclePolicy())
	require.NoError(t, err)

	require.NoError(t, participants.Remove(ctx, p.ID, models.LegacyKhatmaID))

	_, err = participants.GetByID(ctx, p.ID)
	require.ErrorIs(t, err, ErrParticipantMissing)

	avail, err := hizbs.Available(ctx, models.LegacyKhatmaID)
	require.NoError(t, err)
	require.Len(t, avail, models.TotalHizbs)
}
