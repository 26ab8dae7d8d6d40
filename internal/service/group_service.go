package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
	"github.com/centerionware/smartbillsplitter-sub003/internal/storage"
)

// GroupService manages reusable participant groups.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage
// backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup validates and persists a new group. Member rows carry
// only identity and contact details; amounts and paid flags reset.
func (s *GroupService) CreateGroup(ctx context.Context, group *models.Group) error {
	if err := cleanGroup(group); err != nil {
		return err
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return err
	}
	slog.Info("Group created", "groupId", group.ID, "name", group.Name, "members", len(group.Participants))
	return nil
}

// UpdateGroup validates and replaces an existing group.
func (s *GroupService) UpdateGroup(ctx context.Context, group *models.Group) error {
	if err := cleanGroup(group); err != nil {
		return err
	}
	return s.store.UpdateGroup(ctx, group)
}

// GetGroup returns one group by ID.
func (s *GroupService) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	return s.store.GetGroup(ctx, id)
}

// ListGroups returns all groups sorted by name.
func (s *GroupService) ListGroups(ctx context.Context) ([]models.Group, error) {
	return s.store.ListGroups(ctx)
}

// DeleteGroup removes a group. Bills already composed from it keep
// their own participant copies.
func (s *GroupService) DeleteGroup(ctx context.Context, id string) error {
	return s.store.DeleteGroup(ctx, id)
}

// cleanGroup drops placeholder member rows, fills missing IDs and
// resets any bill-specific state that has no meaning on a group.
func cleanGroup(group *models.Group) error {
	if group.Name == "" {
		return errors.New("group name is required")
	}
	kept := make([]models.Participant, 0, len(group.Participants))
	for _, p := range group.Participants {
		if p.Name == "" {
			continue
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.AmountOwed = 0
		p.Paid = false
		p.SplitValue = nil
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return errors.New("group needs at least one named member")
	}
	group.Participants = kept
	return nil
}
