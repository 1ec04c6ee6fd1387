package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var ErrInvalidName = errors.New("category name must contain letters or digits")

type Input struct {
	Name        string
	Description string
	IsActive    *bool
}

type Service interface {
	ListCategories(ctx context.Context, includeInactive bool) ([]Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	CreateCategory(ctx context.Context, in Input) (*Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in Input) (*Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListCategories(ctx context.Context, includeInactive bool) ([]Category, error) {
	categories, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list categories")
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *service) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to get category")
		return nil, fmt.Errorf("service: failed to get category: %w", err)
	}
	return c, nil
}

func (s *service) CreateCategory(ctx context.Context, in Input) (*Category, error) {
	c := &Category{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		IsActive:    true,
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	c.Slug = Slugify(c.Name)
	if c.Slug == "" {
		return nil, ErrInvalidName
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrNameExists) {
			return nil, ErrNameExists
		}
		log.Error().Err(err).Msg("service: failed to create category")
		return nil, fmt.Errorf("service: failed to create category: %w", err)
	}

	log.Info().Stringer("category_id", c.ID).Str("slug", c.Slug).Msg("service: category created")
	return c, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, in Input) (*Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(in.Name)
	c.Slug = Slugify(c.Name)
	c.Description = in.Description
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if c.Slug == "" {
		return nil, ErrInvalidName
	}

	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, ErrNameExists) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to update category")
		return nil, fmt.Errorf("service: failed to update category: %w", err)
	}

	return c, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrHasProducts) {
			return err
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to delete category")
		return fmt.Errorf("service: failed to delete category: %w", err)
	}

	log.Info().Stringer("category_id", id).Msg("service: category deleted")
	return nil
}
