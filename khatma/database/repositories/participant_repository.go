package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"log/slog"

	"github.com/khatma-app/khatma/khatma/arabic"
	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/uptrace/bun"
)

var (
	ErrWrongPIN           = errors.New("wrong pin")
	ErrEmptyName          = errors.New("participant name is required")
	ErrParticipantMissing = errors.New("participant not found")
)

// ResolveOutcome tells the caller how a join resolved.
type ResolveOutcome string

const (
	OutcomeSuccess  ResolveOutcome = "success"
	OutcomeCreated  ResolveOutcome = "created"
	OutcomeWrongPIN ResolveOutcome = "wrong_pin"
)

type ParticipantRepository interface {
	ResolveOrCreate(ctx context.Context, khatmaID, name, pin string) (*models.Participant, ResolveOutcome, error)
	UpsertChatUser(ctx context.Context, id int64, fullName, username string) error
	GetByID(ctx context.Context, id int64) (*models.Participant, error)
	ListByKhatma(ctx context.Context, khatmaID string) ([]models.ParticipantActivity, error)
	UpdateName(ctx context.Context, id int64, newName string) error
	UpdatePIN(ctx context.Context, id int64, khatmaID, pin string) error
	ResetPIN(ctx context.Context, id int64) error
	Remove(ctx context.Context, id int64, khatmaID string) error
}

type participantRepository struct {
	db *bun.DB
}

func NewParticipantRepository(db *bun.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

// ResolveOrCreate maps (khatma, display name, pin) to one stable
// participant. Lookup is by normalized name, so diacritic and
// letter-shape variants of the same name land on the same record. The
// unique index on (khatma_id, norm_name) turns concurrent first-time
// joins into one insert winner; the loser re-reads the winner's row.
func (r *participantRepository) ResolveOrCreate(ctx context.Context, khatmaID, name, pin string) (*models.Participant, ResolveOutcome, error) {
	name = strings.TrimSpace(name)
	pin = strings.TrimSpace(pin)
	norm := arabic.Normalize(name)
	if norm == "" {
		return nil, "", ErrEmptyName
	}
	if khatmaID == "" {
		khatmaID = models.LegacyKhatmaID
	}

	existing, err := r.findByNormName(ctx, khatmaID, norm)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return r.matchExisting(ctx, existing, pin)
	}

	// Not found: insert with a fresh synthetic id. DO NOTHING on the
	// name key means a racing creator wins cleanly and we pick up their
	// row instead of erroring.
	for attempt := 0; attempt < 3; attempt++ {
		p := &models.Participant{
			ID:        syntheticID(),
			KhatmaID:  khatmaID,
			FullName:  name,
			NormName:  norm,
			Username:  "web_user",
			PIN:       pin,
			CreatedAt: time.Now(),
		}

		res, err := r.db.NewInsert().
			Model(p).
			On("CONFLICT (khatma_id, norm_name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			// Almost certainly an id collision; regenerate and retry.
			slog.Warn("Participant insert failed, retrying with new id",
				slog.String("type", "db"),
				slog.String("khatma_id", khatmaID),
				slog.Any("error", err))
			continue
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return nil, "", err
		}
		if rows == 0 {
			// Lost the race: someone created this name first.
			winner, err := r.findByNormName(ctx, khatmaID, norm)
			if err != nil {
				return nil, "", err
			}
			if winner == nil {
				return nil, "", fmt.Errorf("participant vanished after conflict for %q", norm)
			}
			return r.matchExisting(ctx, winner, pin)
		}

		if err := bumpVersion(ctx, r.db, khatmaID); err != nil {
			return nil, "", err
		}
		return p, OutcomeCreated, nil
	}
	return nil, "", errors.New("failed to generate unique participant id")
}

// syntheticID generates a negative id for web-only participants from the
// microsecond clock plus jitter; chat-platform ids are positive, so the
// two spaces never collide.
func syntheticID() int64 {
	return -(time.Now().UnixMicro() + rand.Int63n(1000))
}

func (r *participantRepository) findByNormName(ctx context.Context, khatmaID, norm string) (*models.Participant, error) {
	p := new(models.Participant)
	err := r.db.NewSelect().
		Model(p).
		Where("khatma_id = ? AND norm_name = ?", khatmaID, norm).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up participant: %w", err)
	}
	return p, nil
}

// matchExisting applies the pin contract: empty stored pin matches
// anyone and adopts a newly supplied pin; a non-empty stored pin must
// match exactly.
func (r *participantRepository) matchExisting(ctx context.Context, p *models.Participant, pin string) (*models.Participant, ResolveOutcome, error) {
	stored := strings.TrimSpace(p.PIN)
	if stored == "" {
		if pin != "" {
			_, err := r.db.NewUpdate().
				Model((*models.Participant)(nil)).
				Set("pin = ?", pin).
				Where("id = ?", p.ID).
				Exec(ctx)
			if err != nil {
				return nil, "", fmt.Errorf("failed to adopt pin: %w", err)
			}
			p.PIN = pin
			if err := bumpVersion(ctx, r.db, p.KhatmaID); err != nil {
				return nil, "", err
			}
		}
		return p, OutcomeSuccess, nil
	}
	if stored != pin {
		return nil, OutcomeWrongPIN, nil
	}
	return p, OutcomeSuccess, nil
}

// UpsertChatUser registers or refreshes a chat-platform participant in
// the legacy scope, keyed by the platform's own numeric id.
func (r *participantRepository) UpsertChatUser(ctx context.Context, id int64, fullName, username string) error {
	p := &models.Participant{
		ID:        id,
		KhatmaID:  models.LegacyKhatmaID,
		FullName:  fullName,
		NormName:  arabic.Normalize(fullName),
		Username:  username,
		CreatedAt: time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(p).
		On("CONFLICT (id) DO UPDATE").
		Set("full_name = EXCLUDED.full_name").
		Set("norm_name = EXCLUDED.norm_name").
		Set("username = EXCLUDED.username").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert chat user: %w", err)
	}
	// A name refresh changes what the cached board renders.
	return bumpVersion(ctx, r.db, models.LegacyKhatmaID)
}

func (r *participantRepository) GetByID(ctx context.Context, id int64) (*models.Participant, error) {
	p := new(models.Participant)
	err := r.db.NewSelect().Model(p).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrParticipantMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (r *participantRepository) ListByKhatma(ctx context.Context, khatmaID string) ([]models.ParticipantActivity, error) {
	var rows []models.ParticipantActivity
	err := r.db.NewRaw(`
		SELECT p.id, p.full_name, p.pin,
		       (SELECT COUNT(*) FROM hizb_assignments ha WHERE ha.participant_id = p.id AND ha.khatma_id = p.khatma_id) AS active_count,
		       (SELECT COUNT(*) FROM completed_hizbs ch WHERE ch.participant_id = p.id AND ch.khatma_id = p.khatma_id) AS completed_count
		FROM participants p
		WHERE p.khatma_id = ?`, khatmaID).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return rows, nil
}

func (r *participantRepository) UpdateName(ctx context.Context, id int64, newName string) error {
	newName = strings.TrimSpace(newName)
	norm := arabic.Normalize(newName)
	if norm == "" {
		return ErrEmptyName
	}

	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.db.NewUpdate().
		Model((*models.Participant)(nil)).
		Set("full_name = ?", newName).
		Set("norm_name = ?", norm).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update participant name: %w", err)
	}
	return bumpVersion(ctx, r.db, p.KhatmaID)
}

func (r *participantRepository) UpdatePIN(ctx context.Context, id int64, khatmaID, pin string) error {
	_, err := r.db.NewUpdate().
		Model((*models.Participant)(nil)).
		Set("pin = ?", pin).
		Where("id = ? AND khatma_id = ?", id, khatmaID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update pin: %w", err)
	}
	return bumpVersion(ctx, r.db, khatmaID)
}

func (r *participantRepository) ResetPIN(ctx context.Context, id int64) error {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.db.NewUpdate().
		Model((*models.Participant)(nil)).
		Set("pin = ''").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset pin: %w", err)
	}
	return bumpVersion(ctx, r.db, p.KhatmaID)
}

// Remove drops a participant and every row they own in that khatma.
func (r *participantRepository) Remove(ctx context.Context, id int64, khatmaID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NewDelete().Model((*models.Participant)(nil)).Where("id = ? AND khatma_id = ?", id, khatmaID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	if _, err := tx.NewDelete().Model((*models.HizbAssignment)(nil)).Where("participant_id = ? AND khatma_id = ?", id, khatmaID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete participant assignments: %w", err)
	}
	if _, err := tx.NewDelete().Model((*models.CompletedHizb)(nil)).Where("participant_id = ? AND khatma_id = ?", id, khatmaID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete participant completions: %w", err)
	}
	if err := bumpVersion(ctx, tx, khatmaID); err != nil {
		return err
	}
	return tx.Commit()
}
