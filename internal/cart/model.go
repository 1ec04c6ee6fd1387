package cart

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type ProductSummary struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
}

type Item struct {
	Product   ProductSummary  `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	AddedAt   time.Time       `json:"added_at"`
}

type Cart struct {
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// NewCart prices every line at the live product price.
func NewCart(items []Item) *Cart {
	c := &Cart{Items: make([]Item, 0, len(items)), Total: decimal.Zero}
	for _, it := range items {
		it.LineTotal = it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		c.Total = c.Total.Add(it.LineTotal)
		c.ItemCount += it.Quantity
		c.Items = append(c.Items, it)
	}
	return c
}
