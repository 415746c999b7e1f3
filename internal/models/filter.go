package models

import "fmt"

// Profession identifies the kind of professional listed in the directory
type Profession string

const (
	ProfessionContractor Profession = "contractor"
	ProfessionArchitect  Profession = "architect"
)

// Valid reports whether p is a known profession
func (p Profession) Valid() bool {
	return p == ProfessionContractor || p == ProfessionArchitect
}

// SortBy is the server-side ordering requested for a listing
type SortBy string

const (
	SortRelevance  SortBy = "relevance"
	SortRating     SortBy = "rating"
	SortExperience SortBy = "experience"
)

// Valid reports whether s is a known sort option
func (s SortBy) Valid() bool {
	return s == SortRelevance || s == SortRating || s == SortExperience
}

// BudgetRange is an inclusive (min, max) project budget in rupees
type BudgetRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// String renders the range in its query-string form ("min-max")
func (b BudgetRange) String() string {
	return fmt.Sprintf("%d-%d", b.Min, b.Max)
}

// FilterState is the canonical in-memory representation of search intent.
// Zero-value fields mean "no constraint" for that dimension.
type FilterState struct {
	Profession     Profession   `json:"profession,omitempty"`
	Location       string       `json:"location,omitempty"`
	Specialization string       `json:"specialization,omitempty"` // comma-joined tags
	Search         string       `json:"search,omitempty"`
	SortBy         SortBy       `json:"sortBy,omitempty"`
	BudgetRange    *BudgetRange `json:"budgetRange,omitempty"`
	Page           int          `json:"page"`
}

// DefaultFilterState returns the all-default state (no constraints, page 1)
func DefaultFilterState() FilterState {
	return FilterState{Page: 1}
}

// IsDefault reports whether no field other than page 1 is set
func (f FilterState) IsDefault() bool {
	return !f.HasFilters() && f.Page <= 1
}

// HasFilters reports whether any filter field (page excluded) is set
func (f FilterState) HasFilters() bool {
	return f.Profession != "" ||
		f.Location != "" ||
		f.Specialization != "" ||
		f.Search != "" ||
		f.SortBy != "" ||
		f.BudgetRange != nil
}

// FilterField names a single clearable/settable field of FilterState
type FilterField string

const (
	FieldProfession     FilterField = "profession"
	FieldLocation       FilterField = "location"
	FieldSpecialization FilterField = "specialization"
	FieldSearch         FilterField = "search"
	FieldSortBy         FilterField = "sortBy"
	FieldBudget         FilterField = "budget"
)

// AllFilterFields lists fields in their canonical (encoding) order
var AllFilterFields = []FilterField{
	FieldProfession,
	FieldLocation,
	FieldSpecialization,
	FieldSearch,
	FieldSortBy,
	FieldBudget,
}

// ParseFilterField resolves a field name, accepting the legacy URL aliases
// "type" and "keyword".
func ParseFilterField(name string) (FilterField, bool) {
	switch name {
	case "profession", "type":
		return FieldProfession, true
	case "location":
		return FieldLocation, true
	case "specialization":
		return FieldSpecialization, true
	case "search", "keyword":
		return FieldSearch, true
	case "sortBy":
		return FieldSortBy, true
	case "budget", "budgetRange":
		return FieldBudget, true
	}
	return "", false
}

// Without returns a copy of f with the given field reset
func (f FilterState) Without(field FilterField) FilterState {
	switch field {
	case FieldProfession:
		f.Profession = ""
	case FieldLocation:
		f.Location = ""
	case FieldSpecialization:
		f.Specialization = ""
	case FieldSearch:
		f.Search = ""
	case FieldSortBy:
		f.SortBy = ""
	case FieldBudget:
		f.BudgetRange = nil
	}
	return f
}
