// Package render turns a controller snapshot into the listing view model
// consumed by browser and terminal front ends.
package render

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/terra-clan/build-directory/internal/controller"
	"github.com/terra-clan/build-directory/internal/models"
	"github.com/terra-clan/build-directory/internal/query"
)

const (
	EmptyMessage = "No professionals found matching your criteria."
	EmptyHint    = "Try adjusting your filters or search terms."

	errorMessage      = "We couldn't load professionals."
	errorStaleMessage = "We couldn't load professionals. Showing the last results."

	fallbackLocation = "Kamshet"
)

// Intent types accepted from renderers
const (
	IntentFilter   = "filter"
	IntentPage     = "page"
	IntentClear    = "clear"
	IntentClearAll = "clearAll"
	IntentNavigate = "navigate"
	IntentRetry    = "retry"
)

// Chip is one active filter with the field to send in a clear intent
type Chip struct {
	Field models.FilterField `json:"field"`
	Label string             `json:"label"`
}

// PageControl is a prev/next button
type PageControl struct {
	Page     int  `json:"page"`
	Disabled bool `json:"disabled"`
}

// PageLink is a numbered page button. Gap marks skipped pages before it.
type PageLink struct {
	Page   int  `json:"page"`
	Active bool `json:"active"`
	Gap    bool `json:"gap,omitempty"`
}

// pageWindow is how many numbered links are shown on each side of the
// current page, besides the first and last page
const pageWindow = 2

// Pagination describes the page controls; Visible is false for a single page
type Pagination struct {
	Visible bool        `json:"visible"`
	Current int         `json:"current"`
	Total   int         `json:"total"`
	Prev    PageControl `json:"prev"`
	Next    PageControl `json:"next"`
	Pages   []PageLink  `json:"pages"`
}

// EmptyState is shown when a successful fetch returned no professionals
type EmptyState struct {
	Message string `json:"message"`
	Hint    string `json:"hint"`
}

// ErrorBanner is shown after a failed fetch
type ErrorBanner struct {
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// ListingView is everything a front end needs to draw the listing page
type ListingView struct {
	Title      string                `json:"title"`
	Heading    string                `json:"heading"`
	Query      string                `json:"query"`
	Filters    models.FilterState    `json:"filters"`
	Status     controller.Status     `json:"status"`
	Loading    bool                  `json:"loading"`
	Stale      bool                  `json:"stale"`
	Count      int                   `json:"count"`
	Items      []models.Professional `json:"items"`
	Chips      []Chip                `json:"chips"`
	ClearAll   bool                  `json:"clearAll"`
	Pagination Pagination            `json:"pagination"`
	Empty      *EmptyState           `json:"empty,omitempty"`
	Error      *ErrorBanner          `json:"error,omitempty"`
}

// Listing builds the view model for v. cat may be nil, in which case raw
// values are used as labels.
func Listing(v controller.View, cat *models.Catalog) ListingView {
	out := ListingView{
		Title:   Title(v.Filters, cat),
		Query:   v.Query,
		Filters: v.Filters,
		Status:  v.Status,
		Loading: v.Status == controller.StatusSyncing,
		Stale:   v.Stale,
		Items:   []models.Professional{},
		Chips:   Chips(v.Filters, cat),
	}
	out.ClearAll = len(out.Chips) > 0

	totalPages := 1
	if v.Result != nil {
		out.Count = v.Result.TotalCount
		out.Items = v.Result.Items
		totalPages = v.Result.TotalPages
	}
	out.Heading = fmt.Sprintf("%s (%d)", out.Title, out.Count)
	out.Pagination = Paginate(v.Filters.Page, totalPages)

	switch {
	case v.Status == controller.StatusError:
		msg := errorMessage
		if v.Result != nil {
			msg = errorStaleMessage
		}
		out.Error = &ErrorBanner{Message: msg, Retry: true}
	case v.Status == controller.StatusIdle && v.Result != nil && len(v.Result.Items) == 0:
		out.Empty = &EmptyState{Message: EmptyMessage, Hint: EmptyHint}
	}

	return out
}

// Title is "Contractors in Kamshet" when a profession is chosen and
// "Professionals in Kamshet" otherwise
func Title(f models.FilterState, cat *models.Catalog) string {
	who := "Professionals"
	if f.Profession != "" {
		who = label(cat, models.FieldProfession, string(f.Profession)) + "s"
	}

	where := fallbackLocation
	switch {
	case f.Location != "":
		where = label(cat, models.FieldLocation, f.Location)
	case cat != nil && cat.DefaultLocation != "":
		where = label(cat, models.FieldLocation, cat.DefaultLocation)
	}
	return who + " in " + where
}

// Chips lists active filters in canonical field order
func Chips(f models.FilterState, cat *models.Catalog) []Chip {
	chips := []Chip{}
	for _, field := range models.AllFilterFields {
		var text string
		switch field {
		case models.FieldProfession:
			if f.Profession != "" {
				text = label(cat, models.FieldProfession, string(f.Profession))
			}
		case models.FieldLocation:
			if f.Location != "" {
				text = label(cat, models.FieldLocation, f.Location)
			}
		case models.FieldSpecialization:
			if tags := query.SplitSpecialization(f.Specialization); len(tags) > 0 {
				for i, tag := range tags {
					tags[i] = label(cat, models.FieldSpecialization, tag)
				}
				text = strings.Join(tags, ", ")
			}
		case models.FieldSearch:
			if f.Search != "" {
				text = fmt.Sprintf("%q", f.Search)
			}
		case models.FieldSortBy:
			if f.SortBy != "" {
				text = "Sort: " + label(cat, models.FieldSortBy, string(f.SortBy))
			}
		case models.FieldBudget:
			if f.BudgetRange != nil {
				text = budgetLabel(cat, *f.BudgetRange)
			}
		}
		if text != "" {
			chips = append(chips, Chip{Field: field, Label: text})
		}
	}
	return chips
}

// Paginate builds page controls for current out of total pages. Numbered
// links cover the first and last page and a window around current, so the
// result stays small for any total.
func Paginate(current, total int) Pagination {
	if total < 1 {
		total = 1
	}
	if current < 1 {
		current = 1
	}

	p := Pagination{
		Visible: total > 1,
		Current: current,
		Total:   total,
		Prev:    PageControl{Page: current - 1, Disabled: current <= 1},
		Next:    PageControl{Page: current + 1, Disabled: current >= total},
		Pages:   []PageLink{},
	}
	if !p.Visible {
		return p
	}

	center := min(current, total)
	lo := max(1, center-pageWindow)
	hi := min(total, center+pageWindow)

	add := func(n int, gap bool) {
		p.Pages = append(p.Pages, PageLink{Page: n, Active: n == current, Gap: gap})
	}
	if lo > 1 {
		add(1, false)
	}
	for n := lo; n <= hi; n++ {
		add(n, n == lo && lo > 2)
	}
	if hi < total {
		add(total, hi < total-1)
	}
	return p
}

func budgetLabel(cat *models.Catalog, b models.BudgetRange) string {
	if text, ok := cat.Label(models.FieldBudget, b.String()); ok {
		return text
	}
	return "Budget: " + b.String()
}

func label(cat *models.Catalog, field models.FilterField, value string) string {
	if text, ok := cat.Label(field, value); ok {
		return text
	}
	return capitalize(value)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
