package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/uptrace/bun"
)

var (
	ErrHizbTaken          = errors.New("hizb already taken")
	ErrNotOwned           = errors.New("hizb not owned by participant")
	ErrNotAssigned        = errors.New("hizb not assigned to participant")
	ErrCompletionNotFound = errors.New("completion not found")
)

// FallbackName labels board rows whose participant record is gone.
const FallbackName = "مشارك"

// CyclePolicy controls what a cycle roll-over clears besides the board
// itself. The legacy single-group deployment wipes participants and the
// intentions wall and restarts the deadline; multi-tenant khatmas keep
// everything except slot occupancy.
type CyclePolicy struct {
	WipeParticipants bool
	ClearIntentions  bool
	ResetDeadline    bool
}

func LegacyCyclePolicy() CyclePolicy {
	return CyclePolicy{WipeParticipants: true, ClearIntentions: true, ResetDeadline: true}
}

func DefaultCyclePolicy() CyclePolicy {
	return CyclePolicy{}
}

// BoardEntry is one occupied hizb joined to its owner's display name.
type BoardEntry struct {
	Hizb          int              `bun:"hizb"`
	ParticipantID int64            `bun:"participant_id"`
	Name          string           `bun:"name"`
	State         models.HizbState `bun:"state"`
}

type BoardStatus struct {
	CompletedCount int
	ActiveCount    int
	Entries        []BoardEntry
}

type HizbRepository interface {
	Assign(ctx context.Context, khatmaID string, participantID int64, hizb int) error
	Unassign(ctx context.Context, khatmaID string, participantID int64, hizb int) error
	MarkDone(ctx context.Context, khatmaID string, participantID int64, hizb int, policy CyclePolicy) (bool, error)
	MarkAllDone(ctx context.Context, khatmaID string, participantID int64, policy CyclePolicy) ([]int, bool, error)
	UndoCompletion(ctx context.Context, khatmaID string, participantID int64, hizb int) error
	ResetBoard(ctx context.Context, khatmaID string, policy CyclePolicy) error
	Available(ctx context.Context, khatmaID string) ([]int, error)
	Board(ctx context.Context, khatmaID string) (*BoardStatus, error)
	ParticipantHizbs(ctx context.Context, khatmaID string, participantID int64) ([]int, error)
}

type hizbRepository struct {
	db *bun.DB
}

func NewHizbRepository(db *bun.DB) HizbRepository {
	return &hizbRepository{db: db}
}

// Assign claims one hizb. The unique key on (khatma_id, hizb) is the
// only arbiter between racing claims: whoever the store accepts wins,
// everyone else gets ErrHizbTaken.
func (r *hizbRepository) Assign(ctx context.Context, khatmaID string, participantID int64, hizb int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// A completed slot stays off the board until the cycle rolls over;
	// only the unique key guards the active set.
	done, err := tx.NewSelect().
		Model((*models.CompletedHizb)(nil)).
		Where("khatma_id = ? AND hizb = ?", khatmaID, hizb).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check completions: %w", err)
	}
	if done {
		return fmt.Errorf("%w: %d", ErrHizbTaken, hizb)
	}

	a := &models.HizbAssignment{
		KhatmaID:      khatmaID,
		Hizb:          hizb,
		ParticipantID: participantID,
		CreatedAt:     time.Now(),
	}
	if _, err := tx.NewInsert().Model(a).Exec(ctx); err != nil {
		slog.Info("Hizb claim rejected",
			slog.String("type", "db"),
			slog.String("khatma_id", khatmaID),
			slog.Int("hizb", hizb),
			slog.Any("cause", err))
		return fmt.Errorf("%w: %d", ErrHizbTaken, hizb)
	}

	if err := bumpVersion(ctx, tx, khatmaID); err != nil {
		return err
	}
	return tx.Commit()
}

// Unassign releases a hizb iff the caller owns it. Releasing twice is a
// harmless no-op apart from the ErrNotOwned result.
func (r *hizbRepository) Unassign(ctx context.Context, khatmaID string, participantID int64, hizb int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.NewDelete().
		Model((*models.HizbAssignment)(nil)).
		Where("khatma_id = ? AND participant_id = ? AND hizb = ?", khatmaID, participantID, hizb).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to release hizb: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotOwned
	}

	if err := bumpVersion(ctx, tx, khatmaID); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkDone moves one hizb from assigned to completed inside a single
// transaction, then rolls the cycle over if this was the 60th. Returns
// whether the cycle finished.
func (r *hizbRepository) MarkDone(ctx context.Context, khatmaID string, participantID int64, hizb int, policy CyclePolicy) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	finished, err := r.markDoneTx(ctx, tx, khatmaID, participantID, hizb)
	if err != nil {
		return false, err
	}
	if finished {
		if err := r.rollOverTx(ctx, tx, khatmaID, policy); err != nil {
			return false, err
		}
	}
	if err := bumpVersion(ctx, tx, khatmaID); err != nil {
		return false, err
	}
	return finished, tx.Commit()
}

func (r *hizbRepository) markDoneTx(ctx context.Context, tx bun.Tx, khatmaID string, participantID int64, hizb int) (bool, error) {
	res, err := tx.NewDelete().
		Model((*models.HizbAssignment)(nil)).
		Where("khatma_id = ? AND participant_id = ? AND hizb = ?", khatmaID, participantID, hizb).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to clear assignment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, ErrNotAssigned
	}

	c := &models.CompletedHizb{
		KhatmaID:      khatmaID,
		Hizb:          hizb,
		ParticipantID: participantID,
		CompletedAt:   time.Now(),
	}
	if _, err := tx.NewInsert().Model(c).Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to record completion: %w", err)
	}

	count, err := tx.NewSelect().
		Model((*models.CompletedHizb)(nil)).
		Where("khatma_id = ?", khatmaID).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count completions: %w", err)
	}
	return count >= models.TotalHizbs, nil
}

// MarkAllDone completes every hizb currently assigned to the
// participant; the cycle check runs once after the batch.
func (r *hizbRepository) MarkAllDone(ctx context.Context, khatmaID string, participantID int64, policy CyclePolicy) ([]int, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var hizbs []int
	err = tx.NewSelect().
		Model((*models.HizbAssignment)(nil)).
		Column("hizb").
		Where("khatma_id = ? AND participant_id = ?", khatmaID, participantID).
		Order("hizb ASC").
		Scan(ctx, &hizbs)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list assignments: %w", err)
	}
	if len(hizbs) == 0 {
		return nil, false, nil
	}

	if _, err := tx.NewDelete().
		Model((*models.HizbAssignment)(nil)).
		Where("khatma_id = ? AND participant_id = ?", khatmaID, participantID).
		Exec(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to clear assignments: %w", err)
	}

	now := time.Now()
	completed := make([]*models.CompletedHizb, 0, len(hizbs))
	for _, h := range hizbs {
		completed = append(completed, &models.CompletedHizb{
			KhatmaID:      khatmaID,
			Hizb:          h,
			ParticipantID: participantID,
			CompletedAt:   now,
		})
	}
	if _, err := tx.NewInsert().Model(&completed).Exec(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to record completions: %w", err)
	}

	count, err := tx.NewSelect().
		Model((*models.CompletedHizb)(nil)).
		Where("khatma_id = ?", khatmaID).
		Count(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to count completions: %w", err)
	}

	finished := count >= models.TotalHizbs
	if finished {
		if err := r.rollOverTx(ctx, tx, khatmaID, policy); err != nil {
			return nil, false, err
		}
	}
	if err := bumpVersion(ctx, tx, khatmaID); err != nil {
		return nil, false, err
	}
	return hizbs, finished, tx.Commit()
}

// UndoCompletion moves a completion back to the active board. Once the
// cycle rolled over the completion rows are gone, so ErrCompletionNotFound
// is also the answer to "undo after reset": a finished cycle is history.
func (r *hizbRepository) UndoCompletion(ctx context.Context, khatmaID string, participantID int64, hizb int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.NewDelete().
		Model((*models.CompletedHizb)(nil)).
		Where("khatma_id = ? AND participant_id = ? AND hizb = ?", khatmaID, participantID, hizb).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete completion: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCompletionNotFound
	}

	a := &models.HizbAssignment{
		KhatmaID:      khatmaID,
		Hizb:          hizb,
		ParticipantID: participantID,
		CreatedAt:     time.Now(),
	}
	if _, err := tx.NewInsert().Model(a).Exec(ctx); err != nil {
		return fmt.Errorf("failed to restore assignment: %w", err)
	}

	if err := bumpVersion(ctx, tx, khatmaID); err != nil {
		return err
	}
	return tx.Commit()
}

// rollOverTx performs the cycle transition: counter up, board cleared,
// plus whatever the policy says. Runs inside the completing transaction
// so no reader ever sees a half-reset board.
func (r *hizbRepository) rollOverTx(ctx context.Context, tx bun.Tx, khatmaID string, policy CyclePolicy) error {
	if _, err := tx.NewUpdate().
		Model((*models.Khatma)(nil)).
		Set("total_cycles = total_cycles + 1").
		Where("id = ?", khatmaID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment cycle counter: %w", err)
	}

	if _, err := tx.NewDelete().
		Model((*models.HizbAssignment)(nil)).
		Where("khatma_id = ?", khatmaID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	if _, err := tx.NewDelete().
		Model((*models.CompletedHizb)(nil)).
		Where("khatma_id = ?", khatmaID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear completions: %w", err)
	}

	if policy.WipeParticipants {
		if _, err := tx.NewDelete().
			Model((*models.Participant)(nil)).
			Where("khatma_id = ?", khatmaID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear participants: %w", err)
		}
	}
	if policy.ClearIntentions {
		if _, err := tx.NewDelete().
			Model((*models.Intention)(nil)).
			Where("khatma_id = ?", khatmaID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear intentions: %w", err)
		}
	}
	if policy.ResetDeadline {
		if _, err := tx.NewUpdate().
			Model((*models.Khatma)(nil)).
			Set("deadline = ?", time.Now().AddDate(0, 0, 7)).
			Where("id = ?", khatmaID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to reset deadline: %w", err)
		}
	}

	slog.Info("Cycle rolled over",
		slog.String("type", "sys"),
		slog.String("khatma_id", khatmaID),
		slog.Bool("wiped_participants", policy.WipeParticipants))
	return nil
}

// ResetBoard clears the board by hand, outside of the normal cycle
// roll-over. The cycle counter is untouched; only an all-60 completion
// earns an increment.
func (r *hizbRepository) ResetBoard(ctx context.Context, khatmaID string, policy CyclePolicy) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NewDelete().
		Model((*models.HizbAssignment)(nil)).
		Where("khatma_id = ?", khatmaID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	if _, err := tx.NewDelete().
		Model((*models.CompletedHizb)(nil)).
		Where("khatma_id = ?", khatmaID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear completions: %w", err)
	}

	if policy.WipeParticipants {
		if _, err := tx.NewDelete().
			Model((*models.Participant)(nil)).
			Where("khatma_id = ?", khatmaID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear participants: %w", err)
		}
	}
	if policy.ClearIntentions {
		if _, err := tx.NewDelete().
			Model((*models.Intention)(nil)).
			Where("khatma_id = ?", khatmaID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear intentions: %w", err)
		}
	}
	if policy.ResetDeadline {
		if _, err := tx.NewUpdate().
			Model((*models.Khatma)(nil)).
			Set("deadline = ?", time.Now().AddDate(0, 0, 7)).
			Where("id = ?", khatmaID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to reset deadline: %w", err)
		}
	}

	if err := bumpVersion(ctx, tx, khatmaID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("Board reset",
		slog.String("type", "sys"),
		slog.String("khatma_id", khatmaID),
		slog.Bool("wiped_participants", policy.WipeParticipants))
	return nil
}

// Available reconstructs the free slots as 1..60 minus every occupied
// number; slots have no identity of their own.
func (r *hizbRepository) Available(ctx context.Context, khatmaID string) ([]int, error) {
	var taken []int
	err := r.db.NewRaw(`
		SELECT hizb FROM hizb_assignments WHERE khatma_id = ?
		UNION
		SELECT hizb FROM completed_hizbs WHERE khatma_id = ?`, khatmaID, khatmaID).
		Scan(ctx, &taken)
	if err != nil {
		return nil, fmt.Errorf("failed to list taken hizbs: %w", err)
	}

	occupied := make(map[int]bool, len(taken))
	for _, h := range taken {
		occupied[h] = true
	}
	available := make([]int, 0, models.TotalHizbs-len(taken))
	for h := 1; h <= models.TotalHizbs; h++ {
		if !occupied[h] {
			available = append(available, h)
		}
	}
	return available, nil
}

func (r *hizbRepository) Board(ctx context.Context, khatmaID string) (*BoardStatus, error) {
	var entries []BoardEntry
	err := r.db.NewRaw(`
		SELECT ha.hizb, ha.participant_id, COALESCE(p.full_name, ?) AS name, 'active' AS state
		FROM hizb_assignments ha
		LEFT JOIN participants p ON ha.participant_id = p.id
		WHERE ha.khatma_id = ?
		UNION ALL
		SELECT ch.hizb, ch.participant_id, COALESCE(p.full_name, ?) AS name, 'completed' AS state
		FROM completed_hizbs ch
		LEFT JOIN participants p ON ch.participant_id = p.id
		WHERE ch.khatma_id = ?
		ORDER BY hizb`, FallbackName, khatmaID, FallbackName, khatmaID).
		Scan(ctx, &entries)
	if err != nil {
		return nil, fmt.Errorf("failed to read board: %w", err)
	}

	status := &BoardStatus{Entries: entries}
	for _, e := range entries {
		switch e.State {
		case models.HizbActive:
			status.ActiveCount++
		case models.HizbCompleted:
			status.CompletedCount++
		}
	}
	return status, nil
}

func (r *hizbRepository) ParticipantHizbs(ctx context.Context, khatmaID string, participantID int64) ([]int, error) {
	var hizbs []int
	err := r.db.NewSelect().
		Model((*models.HizbAssignment)(nil)).
		Column("hizb").
		Where("khatma_id = ? AND participant_id = ?", khatmaID, participantID).
		Order("hizb ASC").
		Scan(ctx, &hizbs)
	if err != nil {
		return nil, fmt.Errorf("failed to list participant hizbs: %w", err)
	}
	return hizbs, nil
}
