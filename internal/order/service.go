package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/events"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/metrics"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
)

const DefaultRecentLimit = 5

var ErrMissingShippingAddress = errors.New("shipping address is required")

type Service interface {
	PlaceOrder(ctx context.Context, in PlaceInput) (*Order, error)
	GetOrder(ctx context.Context, actor *authz.Actor, id uuid.UUID) (*Order, error)
	CancelOrder(ctx context.Context, actor *authz.Actor, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]Order, int, error)
	History(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]Order, int, error)
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]Order, error)
	Statistics(ctx context.Context, userID *uuid.UUID) (*Statistics, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) (*Order, error)
}

type service struct {
	repo      Repository
	policy    *authz.Policy
	publisher events.Publisher
	now       func() time.Time
}

func NewService(repo Repository, policy *authz.Policy, publisher events.Publisher) Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &service{
		repo:      repo,
		policy:    policy,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) PlaceOrder(ctx context.Context, in PlaceInput) (*Order, error) {
	if in.ShippingAddress == "" {
		return nil, ErrMissingShippingAddress
	}

	number, err := GenerateOrderNumber(s.now())
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	o, err := s.repo.Place(ctx, in, number)
	metrics.RecordOrderOperation("place", err == nil)
	if err != nil {
		if isBusinessError(err) {
			log.Warn().Err(err).Stringer("user_id", in.UserID).Msg("service: order placement rejected")
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", in.UserID).Msg("service: failed to place order")
		return nil, fmt.Errorf("service: failed to place order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Str("order_number", o.OrderNumber).Msg("service: order placed")
	s.publish(ctx, events.OrderPlaced, o)
	return o, nil
}

// GetOrder returns the order when the actor owns it or may view every order.
// Orders the actor may not see are reported as missing.
func (s *service) GetOrder(ctx context.Context, actor *authz.Actor, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to get order")
		return nil, fmt.Errorf("service: failed to get order: %w", err)
	}

	if !s.policy.CanAccessOrder(actor, o.UserID) {
		return nil, ErrNotFound
	}

	return o, nil
}

func (s *service) CancelOrder(ctx context.Context, actor *authz.Actor, id uuid.UUID) (*Order, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to get order: %w", err)
	}

	if !s.policy.CanAccessOrder(actor, existing.UserID) {
		log.Warn().Stringer("order_id", id).Stringer("actor_id", actor.UserID).Msg("service: cancel denied")
		return nil, authz.ErrForbidden
	}

	o, err := s.repo.Cancel(ctx, id)
	metrics.RecordOrderOperation("cancel", err == nil)
	if err != nil {
		if isBusinessError(err) {
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to cancel order")
		return nil, fmt.Errorf("service: failed to cancel order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Stringer("actor_id", actor.UserID).Msg("service: order cancelled")
	s.publish(ctx, events.OrderCancelled, o)
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, 0, ErrInvalidStatus
		}
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, 0, ErrInvalidPaymentStatus
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list orders")
		return nil, 0, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]Order, int, error) {
	return s.ListOrders(ctx, ListFilter{UserID: &userID, Statuses: HistoryStatuses, Page: page})
}

func (s *service) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	orders, _, err := s.ListOrders(ctx, ListFilter{
		UserID: &userID,
		Page:   pagination.Params{Page: 1, PerPage: limit},
	})
	return orders, err
}

func (s *service) Statistics(ctx context.Context, userID *uuid.UUID) (*Statistics, error) {
	stats, err := s.repo.Statistics(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to compute order statistics")
		return nil, fmt.Errorf("service: failed to compute order statistics: %w", err)
	}
	return stats, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	o, err := s.repo.UpdateStatus(ctx, id, status)
	metrics.RecordOrderOperation("update_status", err == nil)
	if err != nil {
		if isBusinessError(err) {
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Str("status", status.String()).Msg("service: failed to update order status")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", id).Str("status", status.String()).Msg("service: order status updated")
	s.publish(ctx, events.OrderStatusChanged, o)
	return o, nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) (*Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidPaymentStatus
	}

	o, err := s.repo.UpdatePaymentStatus(ctx, id, status)
	metrics.RecordOrderOperation("update_payment", err == nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to update payment status")
		return nil, fmt.Errorf("service: failed to update payment status: %w", err)
	}

	s.publish(ctx, events.OrderPaymentChanged, o)
	return o, nil
}

// publish runs after the transaction has committed; a broker failure never undoes the order change.
func (s *service) publish(ctx context.Context, eventType string, o *Order) {
	event := events.OrderEvent{
		Type:          eventType,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        o.Status.String(),
		PaymentStatus: o.PaymentStatus.String(),
		TotalAmount:   o.TotalAmount,
		OccurredAt:    s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Error().Err(err).Str("event", eventType).Stringer("order_id", o.ID).Msg("service: failed to publish order event")
	}
}

func isBusinessError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrNotCancellable) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, product.ErrInsufficientStock) ||
		errors.Is(err, product.ErrUnavailable)
}
