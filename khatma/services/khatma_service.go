package services

import (
	"context"
	"time"

	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/khatma-app/khatma/khatma/database/repositories"
	"github.com/sahilm/fuzzy"
)

// KhatmaService manages tenant lifecycle and settings. Settings
// mutations and purges are admin-only; handlers gate them with IsAdmin
// before calling in — the service itself trusts that check.
type KhatmaService struct {
	khatmas repositories.KhatmaRepository
}

func NewKhatmaService(khatmas repositories.KhatmaRepository) *KhatmaService {
	return &KhatmaService{khatmas: khatmas}
}

func (s *KhatmaService) Create(ctx context.Context, name, adminName, adminPIN, intention string, deadline time.Time) (*models.Khatma, *models.Participant, error) {
	return s.khatmas.Create(ctx, name, adminName, adminPIN, intention, deadline)
}

func (s *KhatmaService) Get(ctx context.Context, id string) (*models.Khatma, error) {
	return s.khatmas.GetByID(ctx, scope(id))
}

func (s *KhatmaService) IsAdmin(ctx context.Context, id string, participantID int64) (bool, error) {
	return s.khatmas.IsAdmin(ctx, id, participantID)
}

func (s *KhatmaService) SetIntention(ctx context.Context, id, intention string) error {
	return s.khatmas.Update(ctx, scope(id), repositories.KhatmaUpdate{Intention: &intention})
}

func (s *KhatmaService) SetDeadline(ctx context.Context, id string, deadline time.Time) error {
	return s.khatmas.Update(ctx, scope(id), repositories.KhatmaUpdate{Deadline: &deadline})
}

func (s *KhatmaService) SetTotalCycles(ctx context.Context, id string, total int) error {
	return s.khatmas.Update(ctx, scope(id), repositories.KhatmaUpdate{TotalCycles: &total})
}

func (s *KhatmaService) Purge(ctx context.Context, id string) error {
	return s.khatmas.Delete(ctx, id)
}

func (s *KhatmaService) GlobalStats(ctx context.Context) (*repositories.GlobalStats, error) {
	return s.khatmas.GlobalStats(ctx)
}

// List returns the dev-dashboard page, optionally ranked by a fuzzy
// match on khatma name or id.
func (s *KhatmaService) List(ctx context.Context, query string, limit, offset int) ([]repositories.KhatmaSummary, error) {
	if query == "" {
		return s.khatmas.List(ctx, limit, offset)
	}

	// Fuzzy ranking needs the full window; fetch broadly, rank, cut.
	all, err := s.khatmas.List(ctx, limit+offset+200, 0)
	if err != nil {
		return nil, err
	}

	haystack := make([]string, len(all))
	for i, k := range all {
		haystack[i] = k.Name + " " + k.ID
	}

	matches := fuzzy.Find(query, haystack)
	ranked := make([]repositories.KhatmaSummary, 0, len(matches))
	for _, m := range matches {
		ranked = append(ranked, all[m.Index])
	}

	if offset >= len(ranked) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end], nil
}
