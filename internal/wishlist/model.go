package wishlist

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Item struct {
	ProductID     uuid.UUID       `json:"product_id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	AddedAt       time.Time       `json:"added_at"`
}
