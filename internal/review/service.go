package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
)

type ProductFinder interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*product.Product, error)
}

type Service interface {
	ProductReviews(ctx context.Context, productID uuid.UUID, page pagination.Params) ([]Review, int, error)
	SubmitReview(ctx context.Context, actor *authz.Actor, productID uuid.UUID, in Input) (*Review, bool, error)
	UpdateReview(ctx context.Context, actor *authz.Actor, id uuid.UUID, in Input) (*Review, error)
	DeleteReview(ctx context.Context, actor *authz.Actor, id uuid.UUID) error
	UserReviews(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]Review, int, error)
	ListReviews(ctx context.Context, filter ListFilter) ([]Review, int, error)
	Approve(ctx context.Context, actor *authz.Actor, id uuid.UUID, notes string) (*Review, error)
	Reject(ctx context.Context, actor *authz.Actor, id uuid.UUID, notes string) (*Review, error)
}

type service struct {
	repo     Repository
	products ProductFinder
	policy   *authz.Policy
}

func NewService(repo Repository, products ProductFinder, policy *authz.Policy) Service {
	return &service{repo: repo, products: products, policy: policy}
}

// ProductReviews lists only approved reviews; pending and rejected ones are never public.
func (s *service) ProductReviews(ctx context.Context, productID uuid.UUID, page pagination.Params) ([]Review, int, error) {
	return s.list(ctx, ListFilter{ProductID: &productID, Status: StatusApproved, Page: page})
}

func (s *service) UserReviews(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]Review, int, error) {
	return s.list(ctx, ListFilter{UserID: &userID, Page: page})
}

func (s *service) ListReviews(ctx context.Context, filter ListFilter) ([]Review, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.list(ctx, filter)
}

func (s *service) list(ctx context.Context, filter ListFilter) ([]Review, int, error) {
	reviews, total, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list reviews")
		return nil, 0, fmt.Errorf("service: failed to list reviews: %w", err)
	}
	return reviews, total, nil
}

// SubmitReview creates the actor's review of a product. A second submission for the
// same product rewrites the earlier review and sends it back to moderation.
func (s *service) SubmitReview(ctx context.Context, actor *authz.Actor, productID uuid.UUID, in Input) (*Review, bool, error) {
	if err := in.Validate(); err != nil {
		return nil, false, err
	}
	in.Comment = strings.TrimSpace(in.Comment)

	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, false, err
	}
	if !p.IsActive {
		return nil, false, product.ErrNotFound
	}

	rv, created, err := s.repo.Upsert(ctx, actor.UserID, productID, in)
	if err != nil {
		if errors.Is(err, ErrAlreadyApproved) || errors.Is(err, product.ErrNotFound) {
			return nil, false, err
		}
		log.Error().Err(err).Stringer("user_id", actor.UserID).Stringer("product_id", productID).Msg("service: failed to submit review")
		return nil, false, fmt.Errorf("service: failed to submit review: %w", err)
	}

	log.Info().Stringer("review_id", rv.ID).Bool("created", created).Msg("service: review submitted")
	return rv, created, nil
}

func (s *service) UpdateReview(ctx context.Context, actor *authz.Actor, id uuid.UUID, in Input) (*Review, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.Comment = strings.TrimSpace(in.Comment)

	existing, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanEditReview(actor, existing.UserID) {
		return nil, authz.ErrForbidden
	}

	rv, err := s.repo.UpdateContent(ctx, id, in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("review_id", id).Msg("service: failed to update review")
		return nil, fmt.Errorf("service: failed to update review: %w", err)
	}
	return rv, nil
}

func (s *service) DeleteReview(ctx context.Context, actor *authz.Actor, id uuid.UUID) error {
	existing, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !s.policy.CanModifyReview(actor, existing.UserID) {
		return authz.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		log.Error().Err(err).Stringer("review_id", id).Msg("service: failed to delete review")
		return fmt.Errorf("service: failed to delete review: %w", err)
	}

	log.Info().Stringer("review_id", id).Stringer("actor_id", actor.UserID).Msg("service: review deleted")
	return nil
}

func (s *service) Approve(ctx context.Context, actor *authz.Actor, id uuid.UUID, notes string) (*Review, error) {
	return s.moderate(ctx, actor, id, StatusApproved, strings.TrimSpace(notes))
}

func (s *service) Reject(ctx context.Context, actor *authz.Actor, id uuid.UUID, notes string) (*Review, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, ErrNotesRequired
	}
	return s.moderate(ctx, actor, id, StatusRejected, notes)
}

func (s *service) moderate(ctx context.Context, actor *authz.Actor, id uuid.UUID, status Status, notes string) (*Review, error) {
	if !s.policy.Can(actor, authz.ModerateReviews) {
		return nil, authz.ErrForbidden
	}

	rv, err := s.repo.Moderate(ctx, id, status, notes, actor.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("review_id", id).Str("status", status.String()).Msg("service: failed to moderate review")
		return nil, fmt.Errorf("service: failed to moderate review: %w", err)
	}

	log.Info().Stringer("review_id", id).Str("status", status.String()).Stringer("moderator_id", actor.UserID).Msg("service: review moderated")
	return rv, nil
}

func (s *service) get(ctx context.Context, id uuid.UUID) (*Review, error) {
	rv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("review_id", id).Msg("service: failed to get review")
		return nil, fmt.Errorf("service: failed to get review: %w", err)
	}
	return rv, nil
}
