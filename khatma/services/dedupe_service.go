package services

import (
	"context"
	"fmt"
	"sort"

	"log/slog"

	"github.com/khatma-app/khatma/khatma/arabic"
	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/uptrace/bun"
)

// DedupeService is the out-of-band repair sweep for participant rows
// created before the unique normalized-name index existed (or imported
// from older data). It merges same-normalized-name participants within
// each khatma, keeping the record with the most progress.
type DedupeService struct {
	db *bun.DB
}

func NewDedupeService(db *bun.DB) *DedupeService {
	return &DedupeService{db: db}
}

type dupCandidate struct {
	participant *models.Participant
	active      int
	completed   int
}

// score ranks merge candidates: completions weigh ten times an active
// claim, ties go to the newer record (larger id magnitude).
func (c dupCandidate) score() int {
	return c.completed*10 + c.active
}

func (c dupCandidate) age() int64 {
	id := c.participant.ID
	if id < 0 {
		return -id
	}
	return id
}

// Sweep walks every khatma and merges duplicate participants. Returns
// the number of records merged away.
func (s *DedupeService) Sweep(ctx context.Context, dryRun bool) (int, error) {
	var khatmaIDs []string
	err := s.db.NewSelect().
		Model((*models.Khatma)(nil)).
		Column("id").
		Scan(ctx, &khatmaIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to list khatmas: %w", err)
	}

	merged := 0
	for _, kid := range khatmaIDs {
		n, err := s.sweepKhatma(ctx, kid, dryRun)
		if err != nil {
			return merged, err
		}
		merged += n
	}
	return merged, nil
}

func (s *DedupeService) sweepKhatma(ctx context.Context, khatmaID string, dryRun bool) (int, error) {
	var participants []*models.Participant
	err := s.db.NewSelect().
		Model(&participants).
		Where("khatma_id = ?", khatmaID).
		Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list participants: %w", err)
	}

	groups := make(map[string][]*models.Participant)
	for _, p := range participants {
		// Re-normalize from the display name: legacy rows may carry a
		// stale or empty norm_name.
		key := arabic.Normalize(p.FullName)
		groups[key] = append(groups[key], p)
	}

	merged := 0
	for key, group := range groups {
		if len(group) < 2 {
			continue
		}

		candidates := make([]dupCandidate, 0, len(group))
		for _, p := range group {
			c := dupCandidate{participant: p}
			c.active, err = s.db.NewSelect().
				Model((*models.HizbAssignment)(nil)).
				Where("khatma_id = ? AND participant_id = ?", khatmaID, p.ID).
				Count(ctx)
			if err != nil {
				return merged, err
			}
			c.completed, err = s.db.NewSelect().
				Model((*models.CompletedHizb)(nil)).
				Where("khatma_id = ? AND participant_id = ?", khatmaID, p.ID).
				Count(ctx)
			if err != nil {
				return merged, err
			}
			candidates = append(candidates, c)
		}

		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].score() != candidates[j].score() {
				return candidates[i].score() > candidates[j].score()
			}
			return candidates[i].age() > candidates[j].age()
		})

		keep := candidates[0]
		slog.Info("Merging duplicate participants",
			slog.String("type", "sys"),
			slog.String("khatma_id", khatmaID),
			slog.String("norm_name", key),
			slog.Int64("keep_id", keep.participant.ID),
			slog.Int("duplicates", len(candidates)-1),
			slog.Bool("dry_run", dryRun))

		if dryRun {
			merged += len(candidates) - 1
			continue
		}

		for _, other := range candidates[1:] {
			if err := s.merge(ctx, khatmaID, keep.participant.ID, other.participant.ID); err != nil {
				return merged, err
			}
			merged++
		}
	}
	return merged, nil
}

// merge moves the loser's board rows onto the keeper and deletes the
// loser. Only the owner column changes, so the (khatma, hizb) keys stay
// unique throughout.
func (s *DedupeService) merge(ctx context.Context, khatmaID string, keepID, loserID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NewUpdate().
		Model((*models.HizbAssignment)(nil)).
		Set("participant_id = ?", keepID).
		Where("khatma_id = ? AND participant_id = ?", khatmaID, loserID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to move assignments: %w", err)
	}
	if _, err := tx.NewUpdate().
		Model((*models.CompletedHizb)(nil)).
		Set("participant_id = ?", keepID).
		Where("khatma_id = ? AND participant_id = ?", khatmaID, loserID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to move completions: %w", err)
	}
	if _, err := tx.NewDelete().
		Model((*models.Participant)(nil)).
		Where("id = ?", loserID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete duplicate participant: %w", err)
	}

	return tx.Commit()
}
