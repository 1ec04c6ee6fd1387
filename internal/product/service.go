package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidPrice      = errors.New("price must not be negative")
	ErrInvalidStock      = errors.New("stock quantity must not be negative")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnavailable       = errors.New("product is not available")
)

const DefaultReportLimit = 10

type Service interface {
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	MostSold(ctx context.Context, limit int) ([]Product, error)
	MostReviewed(ctx context.Context, limit int) ([]Product, error)
	Trending(ctx context.Context, limit, days int) ([]TrendingProduct, error)
	CreateProduct(ctx context.Context, in Input) (*Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in Input) (*Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, quantity int) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo         Repository
	relatedLimit int
	now          func() time.Time
}

func NewService(repo Repository, relatedLimit int) Service {
	return &service{
		repo:         repo,
		relatedLimit: relatedLimit,
		now:          time.Now,
	}
}

func normaliseLimit(limit int) int {
	if limit <= 0 {
		return DefaultReportLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, 0, fmt.Errorf("service: failed to list products: %w", err)
	}

	return products, total, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to get product")
		return nil, fmt.Errorf("service: failed to get product: %w", err)
	}
	return p, nil
}

// GetProductDetail returns an active product with its review and sales aggregates.
func (s *service) GetProductDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrNotFound
	}

	dist, err := s.repo.RatingDistribution(ctx, id)
	if err != nil {
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to load rating distribution")
		return nil, fmt.Errorf("service: failed to load rating distribution: %w", err)
	}

	sales, err := s.repo.SalesSummary(ctx, id)
	if err != nil {
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to load sales summary")
		return nil, fmt.Errorf("service: failed to load sales summary: %w", err)
	}

	related, err := s.repo.Related(ctx, p, s.relatedLimit)
	if err != nil {
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to load related products")
		return nil, fmt.Errorf("service: failed to load related products: %w", err)
	}

	return &Detail{
		Product:            *p,
		RatingDistribution: dist,
		Sales:              *sales,
		Related:            related,
	}, nil
}

func (s *service) MostSold(ctx context.Context, limit int) ([]Product, error) {
	products, err := s.repo.MostSold(ctx, normaliseLimit(limit))
	if err != nil {
		log.Error().Err(err).Msg("service: failed to load most sold products")
		return nil, fmt.Errorf("service: failed to load most sold products: %w", err)
	}
	return products, nil
}

func (s *service) MostReviewed(ctx context.Context, limit int) ([]Product, error) {
	products, err := s.repo.MostReviewed(ctx, normaliseLimit(limit))
	if err != nil {
		log.Error().Err(err).Msg("service: failed to load most reviewed products")
		return nil, fmt.Errorf("service: failed to load most reviewed products: %w", err)
	}
	return products, nil
}

func (s *service) Trending(ctx context.Context, limit, days int) ([]TrendingProduct, error) {
	if days <= 0 {
		days = 30
	}
	since := s.now().UTC().AddDate(0, 0, -days)

	candidates, err := s.repo.TrendingCandidates(ctx, since)
	if err != nil {
		log.Error().Err(err).Int("days", days).Msg("service: failed to load trending candidates")
		return nil, fmt.Errorf("service: failed to load trending products: %w", err)
	}

	return RankTrending(candidates, normaliseLimit(limit)), nil
}

func validateInput(in Input) error {
	if in.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if in.StockQuantity < 0 {
		return ErrInvalidStock
	}
	return nil
}

func (s *service) CreateProduct(ctx context.Context, in Input) (*Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	p := &Product{
		CategoryID:    in.CategoryID,
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		SKU:           strings.TrimSpace(in.SKU),
		Price:         in.Price.Round(2),
		StockQuantity: in.StockQuantity,
		IsActive:      true,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrSKUExists) || errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Stringer("product_id", p.ID).Str("sku", p.SKU).Msg("service: product created")
	return s.GetProduct(ctx, p.ID)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, in Input) (*Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	p.CategoryID = in.CategoryID
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.SKU = strings.TrimSpace(in.SKU)
	p.Price = in.Price.Round(2)
	p.StockQuantity = in.StockQuantity
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrSKUExists) || errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to update product")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	return s.GetProduct(ctx, id)
}

func (s *service) UpdateStock(ctx context.Context, id uuid.UUID, quantity int) (*Product, error) {
	if quantity < 0 {
		return nil, ErrInvalidStock
	}

	if err := s.repo.UpdateStock(ctx, id, quantity); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to update stock")
		return nil, fmt.Errorf("service: failed to update stock: %w", err)
	}

	log.Info().Stringer("product_id", id).Int("stock_quantity", quantity).Msg("service: stock updated")
	return s.GetProduct(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to delete product")
		return fmt.Errorf("service: failed to delete product: %w", err)
	}

	log.Info().Stringer("product_id", id).Msg("service: product deleted")
	return nil
}
