package services

import (
	"context"
	"errors"

	"log/slog"

	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/khatma-app/khatma/khatma/database/repositories"
)

// ErrInvalidHizb rejects out-of-range slot numbers before any store
// access.
var ErrInvalidHizb = errors.New("hizb number must be between 1 and 60")

// CompletionResult reports what a done-operation did.
type CompletionResult struct {
	Hizbs         []int
	CycleFinished bool
}

// BoardService drives the 60-slot board for one khatma scope. An empty
// khatma id means the legacy global scope, which also gets the stronger
// cycle roll-over policy.
type BoardService struct {
	hizbs        repositories.HizbRepository
	khatmas      repositories.KhatmaRepository
	legacyPolicy repositories.CyclePolicy
	tenantPolicy repositories.CyclePolicy
}

func NewBoardService(hizbs repositories.HizbRepository, khatmas repositories.KhatmaRepository) *BoardService {
	return &BoardService{
		hizbs:        hizbs,
		khatmas:      khatmas,
		legacyPolicy: repositories.LegacyCyclePolicy(),
		tenantPolicy: repositories.DefaultCyclePolicy(),
	}
}

// SetPolicies overrides the roll-over behavior; used when the config
// wants the legacy scope to behave like a regular khatma.
func (s *BoardService) SetPolicies(legacy, tenant repositories.CyclePolicy) {
	s.legacyPolicy = legacy
	s.tenantPolicy = tenant
}

func scope(khatmaID string) string {
	if khatmaID == "" {
		return models.LegacyKhatmaID
	}
	return khatmaID
}

func (s *BoardService) policyFor(khatmaID string) repositories.CyclePolicy {
	if khatmaID == models.LegacyKhatmaID {
		return s.legacyPolicy
	}
	return s.tenantPolicy
}

func validHizb(hizb int) bool {
	return hizb >= 1 && hizb <= models.TotalHizbs
}

func (s *BoardService) Claim(ctx context.Context, khatmaID string, participantID int64, hizb int) error {
	if !validHizb(hizb) {
		return ErrInvalidHizb
	}
	return s.hizbs.Assign(ctx, scope(khatmaID), participantID, hizb)
}

func (s *BoardService) Release(ctx context.Context, khatmaID string, participantID int64, hizb int) error {
	if !validHizb(hizb) {
		return ErrInvalidHizb
	}
	return s.hizbs.Unassign(ctx, scope(khatmaID), participantID, hizb)
}

func (s *BoardService) Complete(ctx context.Context, khatmaID string, participantID int64, hizb int) (*CompletionResult, error) {
	if !validHizb(hizb) {
		return nil, ErrInvalidHizb
	}
	kid := scope(khatmaID)
	finished, err := s.hizbs.MarkDone(ctx, kid, participantID, hizb, s.policyFor(kid))
	if err != nil {
		return nil, err
	}
	if finished {
		slog.Info("Khatma completed",
			slog.String("type", "sys"),
			slog.String("khatma_id", kid))
	}
	return &CompletionResult{Hizbs: []int{hizb}, CycleFinished: finished}, nil
}

func (s *BoardService) CompleteAll(ctx context.Context, khatmaID string, participantID int64) (*CompletionResult, error) {
	kid := scope(khatmaID)
	hizbs, finished, err := s.hizbs.MarkAllDone(ctx, kid, participantID, s.policyFor(kid))
	if err != nil {
		return nil, err
	}
	return &CompletionResult{Hizbs: hizbs, CycleFinished: finished}, nil
}

func (s *BoardService) Undo(ctx context.Context, khatmaID string, participantID int64, hizb int) error {
	if !validHizb(hizb) {
		return ErrInvalidHizb
	}
	return s.hizbs.UndoCompletion(ctx, scope(khatmaID), participantID, hizb)
}

// Reset wipes the board on admin request without crediting a cycle.
func (s *BoardService) Reset(ctx context.Context, khatmaID string) error {
	kid := scope(khatmaID)
	return s.hizbs.ResetBoard(ctx, kid, s.policyFor(kid))
}

func (s *BoardService) Available(ctx context.Context, khatmaID string) ([]int, error) {
	return s.hizbs.Available(ctx, scope(khatmaID))
}

func (s *BoardService) Board(ctx context.Context, khatmaID string) (*repositories.BoardStatus, error) {
	return s.hizbs.Board(ctx, scope(khatmaID))
}

func (s *BoardService) ParticipantHizbs(ctx context.Context, khatmaID string, participantID int64) ([]int, error) {
	return s.hizbs.ParticipantHizbs(ctx, scope(khatmaID), participantID)
}

// Version returns the change-version token for the scope. Polling
// clients refetch the board only when it differs from their last read.
func (s *BoardService) Version(ctx context.Context, khatmaID string) (int64, error) {
	return s.khatmas.Version(ctx, scope(khatmaID))
}
