package product

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
)

type Product struct {
	ID            uuid.UUID       `json:"id"`
	CategoryID    uuid.UUID       `json:"category_id"`
	CategoryName  string          `json:"category_name"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	AverageRating float64         `json:"average_rating"`
	ReviewCount   int             `json:"review_count"`
	SoldCount     int             `json:"sold_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (p *Product) InStock(quantity int) bool {
	return p.StockQuantity >= quantity
}

type SalesSummary struct {
	TotalSold    int             `json:"total_sold"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	OrderCount   int             `json:"order_count"`
}

// RatingDistribution maps every star value 1..5 to its number of approved reviews.
type RatingDistribution map[int]int

func NewRatingDistribution() RatingDistribution {
	return RatingDistribution{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
}

type Detail struct {
	Product
	RatingDistribution RatingDistribution `json:"rating_distribution"`
	Sales              SalesSummary       `json:"sales"`
	Related            []Product          `json:"related_products"`
}

const (
	SortName          = "name"
	SortPrice         = "price"
	SortCreatedAt     = "created_at"
	SortStockQuantity = "stock_quantity"
	SortRating        = "rating"
	SortSold          = "sold"
)

var sortColumns = map[string]string{
	SortName:          "p.name",
	SortPrice:         "p.price",
	SortCreatedAt:     "p.created_at",
	SortStockQuantity: "p.stock_quantity",
	SortRating:        "average_rating",
	SortSold:          "sold_count",
}

// OrderByClause resolves a requested sort key and direction against the allow-list.
// Unknown keys fall back to newest first.
func OrderByClause(sortBy, sortOrder string) string {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = sortColumns[SortCreatedAt]
		if sortOrder == "" {
			sortOrder = "desc"
		}
	}

	direction := "ASC"
	if strings.EqualFold(sortOrder, "desc") {
		direction = "DESC"
	}

	return column + " " + direction
}

type ListFilter struct {
	CategoryID      *uuid.UUID
	Search          string
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	InStock         *bool
	MinRating       *float64
	IncludeInactive bool
	SortBy          string
	SortOrder       string
	Page            pagination.Params
}

type Input struct {
	CategoryID    uuid.UUID
	Name          string
	Description   string
	SKU           string
	Price         decimal.Decimal
	StockQuantity int
	IsActive      *bool
}

type TrendingCandidate struct {
	Product
	WindowSold    int
	WindowReviews int
}

type TrendingProduct struct {
	Product
	RecentSales   int     `json:"recent_sales"`
	RecentReviews int     `json:"recent_reviews"`
	TrendingScore float64 `json:"trending_score"`
}

// TrendingScore weighs recent sales, recent reviews and average rating, each normalised to [0,1].
func TrendingScore(sold, maxSold, reviews, maxReviews int, averageRating float64) float64 {
	var score float64
	if maxSold > 0 {
		score += 0.5 * float64(sold) / float64(maxSold)
	}
	if maxReviews > 0 {
		score += 0.3 * float64(reviews) / float64(maxReviews)
	}
	score += 0.2 * averageRating / 5

	return math.Round(score*10000) / 10000
}

// RankTrending scores candidates with recent activity and returns the top limit.
func RankTrending(candidates []TrendingCandidate, limit int) []TrendingProduct {
	maxSold, maxReviews := 0, 0
	for _, c := range candidates {
		if c.WindowSold > maxSold {
			maxSold = c.WindowSold
		}
		if c.WindowReviews > maxReviews {
			maxReviews = c.WindowReviews
		}
	}

	ranked := make([]TrendingProduct, 0, len(candidates))
	for _, c := range candidates {
		if c.WindowSold == 0 && c.WindowReviews == 0 {
			continue
		}
		ranked = append(ranked, TrendingProduct{
			Product:       c.Product,
			RecentSales:   c.WindowSold,
			RecentReviews: c.WindowReviews,
			TrendingScore: TrendingScore(c.WindowSold, maxSold, c.WindowReviews, maxReviews, c.AverageRating),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TrendingScore != ranked[j].TrendingScore {
			return ranked[i].TrendingScore > ranked[j].TrendingScore
		}
		return ranked[i].RecentSales > ranked[j].RecentSales
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}
