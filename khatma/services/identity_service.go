package services

import (
	"context"

	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/khatma-app/khatma/khatma/database/repositories"
)

// IdentityService resolves display names to stable participant ids.
// Callers get back an id plus an outcome; authorization for the
// maintenance operations is the caller's problem.
type IdentityService struct {
	participants repositories.ParticipantRepository
}

func NewIdentityService(participants repositories.ParticipantRepository) *IdentityService {
	return &IdentityService{participants: participants}
}

func (s *IdentityService) Resolve(ctx context.Context, khatmaID, name, pin string) (*models.Participant, repositories.ResolveOutcome, error) {
	return s.participants.ResolveOrCreate(ctx, scope(khatmaID), name, pin)
}

// RegisterChatUser records a chat-platform participant under their
// platform-issued numeric id, refreshing the display name on repeat use.
func (s *IdentityService) RegisterChatUser(ctx context.Context, id int64, fullName, username string) error {
	return s.participants.UpsertChatUser(ctx, id, fullName, username)
}

func (s *IdentityService) Get(ctx context.Context, id int64) (*models.Participant, error) {
	return s.participants.GetByID(ctx, id)
}

func (s *IdentityService) List(ctx context.Context, khatmaID string) ([]models.ParticipantActivity, error) {
	return s.participants.ListByKhatma(ctx, scope(khatmaID))
}

func (s *IdentityService) UpdateName(ctx context.Context, id int64, newName string) error {
	return s.participants.UpdateName(ctx, id, newName)
}

func (s *IdentityService) UpdatePIN(ctx context.Context, id int64, khatmaID, pin string) error {
	return s.participants.UpdatePIN(ctx, id, scope(khatmaID), pin)
}

func (s *IdentityService) ResetPIN(ctx context.Context, id int64) error {
	return s.participants.ResetPIN(ctx, id)
}

func (s *IdentityService) Remove(ctx context.Context, id int64, khatmaID string) error {
	return s.participants.Remove(ctx, id, scope(khatmaID))
}
