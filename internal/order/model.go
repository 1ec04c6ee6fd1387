package order

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

var AllStatuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded}

// HistoryStatuses are the terminal states listed in a customer's order history.
var HistoryStatuses = []Status{StatusDelivered, StatusCancelled, StatusRefunded}

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var AllPaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) Valid() bool {
	for _, v := range AllPaymentStatuses {
		if p == v {
			return true
		}
	}
	return false
}

var (
	ErrNotFound             = errors.New("order not found")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrNotCancellable       = errors.New("order can only be cancelled while pending or processing")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
)

type Item struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   uuid.NullUUID   `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"` // цена на момент покупки
	Subtotal    decimal.Decimal `json:"subtotal"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          uuid.UUID       `json:"user_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          Status          `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingAddress string          `json:"shipping_address"`
	BillingAddress  string          `json:"billing_address"`
	Notes           string          `json:"notes"`
	ShippedAt       *time.Time      `json:"shipped_at"`
	DeliveredAt     *time.Time      `json:"delivered_at"`
	CancelledAt     *time.Time      `json:"cancelled_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []Item          `json:"items"`
}

type PlaceInput struct {
	UserID          uuid.UUID
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
	Notes           string
}

// CartLine is a locked cart row joined with the live product state.
type CartLine struct {
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
	Stock     int
	IsActive  bool
	Quantity  int
}

type ListFilter struct {
	UserID        *uuid.UUID
	Statuses      []Status
	PaymentStatus PaymentStatus
	Page          pagination.Params
}

type Statistics struct {
	TotalOrders       int                   `json:"total_orders"`
	ByStatus          map[Status]int        `json:"by_status"`
	ByPaymentStatus   map[PaymentStatus]int `json:"by_payment_status,omitempty"`
	TotalSpent        decimal.Decimal       `json:"total_spent"`
	AverageOrderValue decimal.Decimal       `json:"average_order_value"`
}

func NewStatistics() *Statistics {
	s := &Statistics{ByStatus: make(map[Status]int, len(AllStatuses))}
	for _, st := range AllStatuses {
		s.ByStatus[st] = 0
	}
	return s
}

// BuildOrder turns locked cart lines into a pending order, copying each live price into its item.
func BuildOrder(in PlaceInput, lines []CartLine, number string, now time.Time) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate order id: %w", err)
	}

	billing := in.BillingAddress
	if billing == "" {
		billing = in.ShippingAddress
	}

	o := &Order{
		ID:              orderID,
		OrderNumber:     number,
		UserID:          in.UserID,
		TotalAmount:     decimal.Zero,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   in.PaymentMethod,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  billing,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
		Items:           make([]Item, 0, len(lines)),
	}

	for _, line := range lines {
		if !line.IsActive {
			return nil, fmt.Errorf("%w: %s", product.ErrUnavailable, line.Name)
		}
		if line.Stock < line.Quantity {
			return nil, fmt.Errorf("%w for %s: requested %d, available %d",
				product.ErrInsufficientStock, line.Name, line.Quantity, line.Stock)
		}

		itemID, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("failed to generate order item id: %w", err)
		}

		subtotal := line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		o.Items = append(o.Items, Item{
			ID:          itemID,
			OrderID:     orderID,
			ProductID:   uuid.NullUUID{UUID: line.ProductID, Valid: true},
			ProductName: line.Name,
			Quantity:    line.Quantity,
			Price:       line.Price,
			Subtotal:    subtotal,
			CreatedAt:   now,
		})
		o.TotalAmount = o.TotalAmount.Add(subtotal)
	}

	return o, nil
}

// ApplyCancellation moves a cancellable order to cancelled and refunds a captured payment.
func ApplyCancellation(o *Order, now time.Time) error {
	if !o.Status.Cancellable() {
		return ErrNotCancellable
	}

	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.UpdatedAt = now
	if o.PaymentStatus == PaymentPaid {
		o.PaymentStatus = PaymentRefunded
	}

	return nil
}

// ApplyStatus performs an administrative status change. Moving to cancelled here
// does not return stock; only ApplyCancellation paired with a restock does.
func ApplyStatus(o *Order, target Status, now time.Time) error {
	if !target.Valid() {
		return ErrInvalidStatus
	}
	if target == StatusCancelled && !o.Status.Cancellable() {
		return ErrNotCancellable
	}

	o.Status = target
	o.UpdatedAt = now

	switch target {
	case StatusShipped:
		o.ShippedAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
		if o.PaymentStatus == PaymentPending {
			o.PaymentStatus = PaymentPaid
		}
	case StatusCancelled:
		o.CancelledAt = &now
	}

	return nil
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateOrderNumber returns ORD-YYYYMMDD-XXXXXXXX with a random suffix.
func GenerateOrderNumber(now time.Time) (string, error) {
	suffix := make([]byte, 8)
	base := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("failed to generate order number: %w", err)
		}
		suffix[i] = orderNumberAlphabet[n.Int64()]
	}

	return "ORD-" + now.UTC().Format("20060102") + "-" + string(suffix), nil
}

func AverageOrderValue(total decimal.Decimal, orders int) decimal.Decimal {
	if orders == 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(orders)), 2)
}
