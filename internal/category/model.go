package category

import (
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/uuid"
)

type Category struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	IsActive      bool      `json:"is_active"`
	ProductsCount int       `json:"products_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Slugify lowercases name and joins its letter and digit runs with single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}

	return b.String()
}
