package models

import "strings"

// Option is a selectable value with its display label
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// BudgetOption is a preset budget range offered in search forms
type BudgetOption struct {
	Range BudgetRange `json:"range"`
	Label string      `json:"label"`
}

// Catalog holds the region-specific vocabularies used to build filter
// controls and chip labels
type Catalog struct {
	Region          string         `json:"region"`
	Name            string         `json:"name"`
	DefaultLocation string         `json:"defaultLocation"`
	Locations       []Option       `json:"locations"`
	Professions     []Option       `json:"professions"`
	Specializations []Option       `json:"specializations"`
	SortOptions     []Option       `json:"sortOptions"`
	Budgets         []BudgetOption `json:"budgets"`
}

// Label returns the display label of value for field. It is safe to call on
// a nil catalog.
func (c *Catalog) Label(field FilterField, value string) (string, bool) {
	if c == nil {
		return "", false
	}

	var opts []Option
	switch field {
	case FieldProfession:
		opts = c.Professions
	case FieldLocation:
		opts = c.Locations
	case FieldSpecialization:
		opts = c.Specializations
	case FieldSortBy:
		opts = c.SortOptions
	case FieldBudget:
		for _, b := range c.Budgets {
			if b.Range.String() == value {
				return b.Label, true
			}
		}
		return "", false
	}

	for _, opt := range opts {
		if strings.EqualFold(opt.Value, value) {
			return opt.Label, true
		}
	}
	return "", false
}
