package pagination

import (
	"math"
	"net/url"
	"strconv"
)

type Params struct {
	Page    int
	PerPage int
}

// Offset never exceeds math.MaxInt32.
func (p Params) Offset() uint64 {
	if p.Page <= 1 || p.PerPage <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt32/p.PerPage {
		return math.MaxInt32
	}
	return uint64((p.Page - 1) * p.PerPage)
}

func (p Params) Limit() uint64 {
	return uint64(p.PerPage)
}

// FromQuery reads page and per_page, falling back to defaults and clamping per_page to maxPerPage.
func FromQuery(q url.Values, defaultPerPage, maxPerPage int) Params {
	p := Params{Page: 1, PerPage: defaultPerPage}

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 {
		p.PerPage = v
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	// страницы дальше этой всё равно пустые, а OFFSET не переполняется
	if p.PerPage > 0 && p.Page > math.MaxInt32/p.PerPage {
		p.Page = math.MaxInt32 / p.PerPage
	}

	return p
}

type Meta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

func NewMeta(p Params, total int) Meta {
	lastPage := 1
	if total > 0 && p.PerPage > 0 {
		lastPage = (total + p.PerPage - 1) / p.PerPage
	}
	return Meta{
		CurrentPage: p.Page,
		PerPage:     p.PerPage,
		Total:       total,
		LastPage:    lastPage,
	}
}

// Page is the list envelope returned by every paginated endpoint.
type Page[T any] struct {
	Data       []T  `json:"data"`
	Pagination Meta `json:"pagination"`
}

func NewPage[T any](items []T, p Params, total int) Page[T] {
	if items == nil {
		items = make([]T, 0)
	}
	return Page[T]{Data: items, Pagination: NewMeta(p, total)}
}
