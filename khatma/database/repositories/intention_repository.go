package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/uptrace/bun"
)

const intentionListLimit = 50

type IntentionRepository interface {
	Add(ctx context.Context, khatmaID string, participantID int64, name, text string) error
	Delete(ctx context.Context, participantID, intentionID int64) error
	List(ctx context.Context, khatmaID string) ([]models.Intention, error)
}

type intentionRepository struct {
	db *bun.DB
}

func NewIntentionRepository(db *bun.DB) IntentionRepository {
	return &intentionRepository{db: db}
}

func (r *intentionRepository) Add(ctx context.Context, khatmaID string, participantID int64, name, text string) error {
	i := &models.Intention{
		KhatmaID:      khatmaID,
		ParticipantID: participantID,
		Name:          name,
		Text:          text,
		CreatedAt:     time.Now(),
	}
	if _, err := r.db.NewInsert().Model(i).Exec(ctx); err != nil {
		return fmt.Errorf("failed to add intention: %w", err)
	}
	return bumpVersion(ctx, r.db, khatmaID)
}

// Delete requires the owner's id alongside the row id so one participant
// cannot remove another's intention. The row's own khatma decides which
// scope gets the version bump; cached status payloads include the
// intention wall, so a stale tenant version would keep serving the
// deleted row.
func (r *intentionRepository) Delete(ctx context.Context, participantID, intentionID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var khatmaID string
	err = tx.NewSelect().
		Model((*models.Intention)(nil)).
		Column("khatma_id").
		Where("id = ?", intentionID).
		Scan(ctx, &khatmaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up intention: %w", err)
	}

	if _, err := tx.NewDelete().
		Model((*models.Intention)(nil)).
		Where("participant_id = ? AND id = ?", participantID, intentionID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete intention: %w", err)
	}

	if err := bumpVersion(ctx, tx, khatmaID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *intentionRepository) List(ctx context.Context, khatmaID string) ([]models.Intention, error) {
	var intentions []models.Intention
	err := r.db.NewSelect().
		Model(&intentions).
		Where("khatma_id = ?", khatmaID).
		Order("id DESC").
		Limit(intentionListLimit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list intentions: %w", err)
	}
	return intentions, nil
}
