package models

import (
	"time"
)

const (
	DefaultPerPage = 50
	MaxPerPage     = 100
)

// AuditLogFilter narrows an audit log search. All fields are optional and
// combine with AND semantics. Start and End are inclusive bounds on created_at.
type AuditLogFilter struct {
	UserID       string
	Action       string
	ResourceType string
	Start        *time.Time
	End          *time.Time
}

// Validate rejects an inverted date range. An empty range is not an error;
// it just matches everything.
func (f AuditLogFilter) Validate() error {
	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return &ValidationError{Field: "start_date", Message: "start_date is after end_date"}
	}
	return nil
}

// Matches reports whether an entry passes every set filter field. The SQL
// search builds the same predicate server-side; this form backs the in-memory
// store.
func (f AuditLogFilter) Matches(l *AuditLog) bool {
	if f.UserID != "" && (l.UserID == nil || *l.UserID != f.UserID) {
		return false
	}
	if f.Action != "" && l.Action != f.Action {
		return false
	}
	if f.ResourceType != "" && l.ResourceType != f.ResourceType {
		return false
	}
	if f.Start != nil && l.CreatedAt.Before(*f.Start) {
		return false
	}
	if f.End != nil && l.CreatedAt.After(*f.End) {
		return false
	}
	return true
}

// Page is a validated, clamped pagination request.
type Page struct {
	Page    int
	PerPage int
}

// NewPage applies defaults and the per_page ceiling. Page numbers below 1 and
// non-positive per_page values are rejected; per_page above the ceiling is
// clamped rather than rejected.
func NewPage(page, perPage int) (Page, error) {
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return Page{}, &ValidationError{Field: "page", Message: "must be at least 1"}
	}
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if perPage < 1 {
		return Page{}, &ValidationError{Field: "per_page", Message: "must be at least 1"}
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Page{Page: page, PerPage: perPage}, nil
}

// Offset returns the number of rows to skip for this page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Pagination is the metadata returned with every search result.
type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// NewPagination derives result metadata from the request and the pre-paging
// match count. An empty result set yields total=0, pages=0 and no neighbors.
func NewPagination(p Page, total int) Pagination {
	pages := 0
	if total > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return Pagination{
		Page:    p.Page,
		PerPage: p.PerPage,
		Total:   total,
		Pages:   pages,
		HasNext: p.Page < pages,
		HasPrev: p.Page > 1 && total > 0,
	}
}
