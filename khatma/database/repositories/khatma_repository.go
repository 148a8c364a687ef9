package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/khatma-app/khatma/khatma/arabic"
	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/uptrace/bun"
)

var (
	ErrKhatmaNotFound = errors.New("khatma not found")
)

const khatmaIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const khatmaIDLength = 6

// KhatmaUpdate carries optional settings changes; nil fields are left
// untouched.
type KhatmaUpdate struct {
	Intention   *string
	Deadline    *time.Time
	TotalCycles *int
}

// KhatmaSummary is the dev-dashboard listing row.
type KhatmaSummary struct {
	ID               string    `bun:"id"`
	Name             string    `bun:"name"`
	CreatedAt        time.Time `bun:"created_at"`
	UpdatedAt        time.Time `bun:"updated_at"`
	TotalCycles      int       `bun:"total_cycles"`
	CurrentCompleted int       `bun:"current_completed"`
	ParticipantCount int       `bun:"participant_count"`
}

type GlobalStats struct {
	Khatmas      int `bun:"khatmas"`
	Participants int `bun:"participants"`
	Reads        int `bun:"reads"`
}

type KhatmaRepository interface {
	Create(ctx context.Context, name, adminName, adminPIN, intention string, deadline time.Time) (*models.Khatma, *models.Participant, error)
	GetByID(ctx context.Context, id string) (*models.Khatma, error)
	Update(ctx context.Context, id string, upd KhatmaUpdate) error
	Delete(ctx context.Context, id string) error
	IsAdmin(ctx context.Context, id string, participantID int64) (bool, error)
	Version(ctx context.Context, id string) (int64, error)
	Bump(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]KhatmaSummary, error)
	GlobalStats(ctx context.Context) (*GlobalStats, error)
}

type khatmaRepository struct {
	db *bun.DB
}

func NewKhatmaRepository(db *bun.DB) KhatmaRepository {
	return &khatmaRepository{db: db}
}

// bumpVersion advances the change-version for the given scope and for the
// legacy global scope in the same statement. Callers run it inside the
// transaction of whatever mutation they are committing.
func bumpVersion(ctx context.Context, db bun.IDB, khatmaID string) error {
	ids := []string{models.LegacyKhatmaID}
	if khatmaID != "" && khatmaID != models.LegacyKhatmaID {
		ids = append(ids, khatmaID)
	}
	_, err := db.NewUpdate().
		Model((*models.Khatma)(nil)).
		Set("updated_at = ?", time.Now()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to bump version: %w", err)
	}
	return nil
}

func (r *khatmaRepository) Create(ctx context.Context, name, adminName, adminPIN, intention string, deadline time.Time) (*models.Khatma, *models.Participant, error) {
	id, err := r.generateID(ctx)
	if err != nil {
		return nil, nil, err
	}

	if deadline.IsZero() {
		deadline = time.Now().AddDate(0, 0, 7)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var admin *models.Participant
	if adminName != "" && adminPIN != "" {
		admin = &models.Participant{
			ID:        -time.Now().Unix(),
			KhatmaID:  id,
			FullName:  adminName,
			NormName:  arabic.Normalize(adminName),
			Username:  "web_admin",
			PIN:       adminPIN,
			CreatedAt: time.Now(),
		}
		if _, err := tx.NewInsert().Model(admin).Exec(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to create khatma admin: %w", err)
		}
	}

	k := &models.Khatma{
		ID:        id,
		Name:      name,
		Intention: intention,
		Deadline:  deadline,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if admin != nil {
		k.AdminID = admin.ID
	}
	if _, err := tx.NewInsert().Model(k).Exec(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to create khatma: %w", err)
	}

	if err := bumpVersion(ctx, tx, id); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return k, admin, nil
}

func (r *khatmaRepository) generateID(ctx context.Context) (string, error) {
	buf := make([]byte, khatmaIDLength)
	for attempt := 0; attempt < 10; attempt++ {
		for i := range buf {
			buf[i] = khatmaIDAlphabet[rand.Intn(len(khatmaIDAlphabet))]
		}
		id := string(buf)

		exists, err := r.db.NewSelect().
			Model((*models.Khatma)(nil)).
			Where("id = ?", id).
			Exists(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to check khatma id: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", errors.New("failed to generate unique khatma id")
}

func (r *khatmaRepository) GetByID(ctx context.Context, id string) (*models.Khatma, error) {
	k := new(models.Khatma)
	err := r.db.NewSelect().Model(k).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKhatmaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get khatma: %w", err)
	}
	return k, nil
}

func (r *khatmaRepository) Update(ctx context.Context, id string, upd KhatmaUpdate) error {
	q := r.db.NewUpdate().
		Model((*models.Khatma)(nil)).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id)

	if upd.Intention != nil {
		q = q.Set("intention = ?", *upd.Intention)
	}
	if upd.Deadline != nil {
		q = q.Set("deadline = ?", *upd.Deadline)
	}
	if upd.TotalCycles != nil {
		q = q.Set("total_cycles = ?", *upd.TotalCycles)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update khatma: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrKhatmaNotFound
	}
	return bumpVersion(ctx, r.db, "")
}

// Delete purges a khatma and everything it owns. Destructive; callers
// must have checked IsAdmin (or hold the dev key) first.
func (r *khatmaRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NewDelete().Model((*models.Khatma)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete khatma: %w", err)
	}
	if _, err := tx.NewDelete().Model((*models.Participant)(nil)).Where("khatma_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete participants: %w", err)
	}
	if _, err := tx.NewDelete().Model((*models.HizbAssignment)(nil)).Where("khatma_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	if _, err := tx.NewDelete().Model((*models.CompletedHizb)(nil)).Where("khatma_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete completions: %w", err)
	}
	if _, err := tx.NewDelete().Model((*models.Intention)(nil)).Where("khatma_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete intentions: %w", err)
	}
	if err := bumpVersion(ctx, tx, ""); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *khatmaRepository) IsAdmin(ctx context.Context, id string, participantID int64) (bool, error) {
	if id == "" || participantID == 0 {
		return false, nil
	}
	k, err := r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrKhatmaNotFound) {
			return false, nil
		}
		return false, err
	}
	return k.AdminID != 0 && k.AdminID == participantID, nil
}

func (r *khatmaRepository) Version(ctx context.Context, id string) (int64, error) {
	if id == "" {
		id = models.LegacyKhatmaID
	}
	k, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return k.Version(), nil
}

func (r *khatmaRepository) Bump(ctx context.Context, id string) error {
	return bumpVersion(ctx, r.db, id)
}

func (r *khatmaRepository) List(ctx context.Context, limit, offset int) ([]KhatmaSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []KhatmaSummary
	err := r.db.NewRaw(`
		SELECT k.id, k.name, k.created_at, k.updated_at, k.total_cycles,
		       (SELECT COUNT(*) FROM completed_hizbs ch WHERE ch.khatma_id = k.id) AS current_completed,
		       (SELECT COUNT(*) FROM participants p WHERE p.khatma_id = k.id) AS participant_count
		FROM khatmas k
		ORDER BY k.updated_at DESC
		LIMIT ? OFFSET ?`, limit, offset).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list khatmas: %w", err)
	}
	return rows, nil
}

func (r *khatmaRepository) GlobalStats(ctx context.Context) (*GlobalStats, error) {
	stats := new(GlobalStats)
	err := r.db.NewRaw(`
		SELECT (SELECT COUNT(*) FROM khatmas) AS khatmas,
		       (SELECT COUNT(*) FROM participants) AS participants,
		       (SELECT COUNT(*) FROM completed_hizbs) AS reads`).
		Scan(ctx, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to read global stats: %w", err)
	}
	return stats, nil
}
