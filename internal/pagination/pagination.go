// Package pagination implements 1-based offset pagination shared by every
// list endpoint. Malformed input never fails: it falls back to defaults.
package pagination

import (
	"math"
	"strconv"
)

const (
	DefaultPage = 1

	DefaultCommentLimit      = 20
	DefaultNotificationLimit = 10
	DefaultPostLimit         = 10
	DefaultSearchLimit       = 30

	// MaxLimit caps the page size of every list endpoint.
	MaxLimit = 100
	// MaxPage keeps (page-1)*MaxLimit well inside int64.
	MaxPage = math.MaxInt32
)

// Params is a normalized page request.
type Params struct {
	Page  int
	Limit int

	skip *int64
}

// Parse reads raw query values. A non-numeric, non-positive or out of range
// page becomes 1. A non-numeric or non-positive limit becomes defaultLimit,
// and a limit above MaxLimit becomes MaxLimit.
func Parse(rawPage, rawLimit string, defaultLimit int) Params {
	page, err := strconv.Atoi(rawPage)
	if err != nil {
		page = DefaultPage
	}
	limit, err := strconv.Atoi(rawLimit)
	if err != nil {
		limit = defaultLimit
	}
	return New(page, limit, defaultLimit)
}

// New builds Params from already-parsed values, applying the same defaults.
func New(page, limit, defaultLimit int) Params {
	if page < 1 || page > MaxPage {
		page = DefaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// WithSkip overrides the computed offset with an explicit one for callers
// that page by item count. Invalid values are ignored.
func (p Params) WithSkip(rawSkip string) Params {
	skip, err := strconv.ParseInt(rawSkip, 10, 64)
	if err != nil || skip < 0 || skip/int64(p.Limit) >= MaxPage {
		return p
	}
	p.skip = &skip
	p.Page = int(skip/int64(p.Limit)) + 1
	return p
}

// Skip is the number of items before this page.
func (p Params) Skip() int64 {
	if p.skip != nil {
		return *p.skip
	}
	return int64(p.Page-1) * int64(p.Limit)
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	Total      int64 `json:"total"`
	HasMore    bool  `json:"hasMore"`
}

// NewMeta computes totalPages = ceil(total/limit) and hasMore = skip+limit < total.
// Without an explicit skip that is page*limit < total.
func NewMeta(p Params, total int64) Meta {
	return Meta{
		Page:       p.Page,
		TotalPages: int(math.Ceil(float64(total) / float64(p.Limit))),
		Total:      total,
		HasMore:    p.Skip()+int64(p.Limit) < total,
	}
}
