package service

import (
	"context"

	"github.com/you/campus-resource-hub/internal/domain"
	"github.com/you/campus-resource-hub/internal/repository"
)

type ResourceSvc struct {
	repo *repository.ResourceRepo
}

func NewResourceSvc(r *repository.ResourceRepo) *ResourceSvc {
	return &ResourceSvc{repo: r}
}

func (s *ResourceSvc) Create(ctx context.Context, actor domain.Actor, in domain.Resource) (*domain.Resource, error) {
	in.OwnerID = actor.ID
	if err := s.repo.Create(ctx, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Get hides unpublished resources from everyone but the owner and admins.
func (s *ResourceSvc) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Resource, error) {
	res, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != domain.ResourcePublished && res.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

func (s *ResourceSvc) ListPublished(ctx context.Context, category string) ([]domain.Resource, error) {
	return s.repo.ListPublished(ctx, category)
}

func (s *ResourceSvc) SetStatus(ctx context.Context, actor domain.Actor, id string, status domain.ResourceStatus) error {
	res, err := s.repo.ByID(ctx, id)
	if err != nil {
		return err
	}
	if res.OwnerID != actor.ID && !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	return s.repo.SetStatus(ctx, id, status)
}
