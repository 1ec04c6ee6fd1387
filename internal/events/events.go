package events

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderPlaced         = "order.placed"
	OrderCancelled      = "order.cancelled"
	OrderStatusChanged  = "order.status_changed"
	OrderPaymentChanged = "order.payment_changed"
)

type OrderEvent struct {
	Type          string          `json:"type"`
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        uuid.UUID       `json:"user_id"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
