package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// ProductFinder is the slice of the catalog the cart needs.
type ProductFinder interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*product.Product, error)
}

type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*Cart, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     Repository
	products ProductFinder
}

func NewService(repo Repository, products ProductFinder) Service {
	return &service{repo: repo, products: products}
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	items, err := s.repo.Items(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to load cart")
		return nil, fmt.Errorf("service: failed to load cart: %w", err)
	}
	return NewCart(items), nil
}

func (s *service) checkAvailable(ctx context.Context, productID uuid.UUID, quantity int) error {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return product.ErrUnavailable
	}
	if !p.InStock(quantity) {
		return fmt.Errorf("%w: only %d of %s left", product.ErrInsufficientStock, p.StockQuantity, p.Name)
	}
	return nil
}

// AddItem increments the quantity already in the cart.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	current, err := s.repo.Quantity(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to read cart: %w", err)
	}

	target := current + quantity
	if err := s.checkAvailable(ctx, productID, target); err != nil {
		return nil, err
	}

	if err := s.repo.SetQuantity(ctx, userID, productID, target); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: failed to add cart item")
		return nil, fmt.Errorf("service: failed to add cart item: %w", err)
	}

	return s.GetCart(ctx, userID)
}

func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	current, err := s.repo.Quantity(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to read cart: %w", err)
	}
	if current == 0 {
		return nil, ErrItemNotFound
	}

	if err := s.checkAvailable(ctx, productID, quantity); err != nil {
		return nil, err
	}

	if err := s.repo.SetQuantity(ctx, userID, productID, quantity); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: failed to update cart item")
		return nil, fmt.Errorf("service: failed to update cart item: %w", err)
	}

	return s.GetCart(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*Cart, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to remove cart item")
		return nil, fmt.Errorf("service: failed to remove cart item: %w", err)
	}

	return s.GetCart(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to clear cart")
		return fmt.Errorf("service: failed to clear cart: %w", err)
	}
	return nil
}
