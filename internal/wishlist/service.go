package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
)

type ProductFinder interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*product.Product, error)
}

// CartAdder is the cart operation used when moving an item out of the wishlist.
type CartAdder interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.Cart, error)
}

type Service interface {
	GetWishlist(ctx context.Context, userID uuid.UUID) ([]Item, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID) ([]Item, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	MoveToCart(ctx context.Context, userID, productID uuid.UUID) (*cart.Cart, error)
}

type service struct {
	repo     Repository
	products ProductFinder
	cart     CartAdder
}

func NewService(repo Repository, products ProductFinder, cart CartAdder) Service {
	return &service{repo: repo, products: products, cart: cart}
}

func (s *service) GetWishlist(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	items, err := s.repo.Items(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to load wishlist")
		return nil, fmt.Errorf("service: failed to load wishlist: %w", err)
	}
	return items, nil
}

// AddItem is idempotent: adding a product twice keeps a single entry.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) ([]Item, error) {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, product.ErrUnavailable
	}

	if err := s.repo.Add(ctx, userID, productID); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: failed to add wishlist item")
		return nil, fmt.Errorf("service: failed to add wishlist item: %w", err)
	}

	return s.GetWishlist(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrItemNotFound
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to remove wishlist item")
		return fmt.Errorf("service: failed to remove wishlist item: %w", err)
	}
	return nil
}

// MoveToCart adds one unit to the cart and then drops the wishlist entry.
func (s *service) MoveToCart(ctx context.Context, userID, productID uuid.UUID) (*cart.Cart, error) {
	ok, err := s.repo.Contains(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to read wishlist: %w", err)
	}
	if !ok {
		return nil, ErrItemNotFound
	}

	c, err := s.cart.AddItem(ctx, userID, productID, 1)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Remove(ctx, userID, productID); err != nil && !errors.Is(err, ErrItemNotFound) {
		log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: moved to cart but failed to remove wishlist item")
		return nil, fmt.Errorf("service: failed to remove wishlist item: %w", err)
	}

	return c, nil
}
