// Package query maps between listing filter state and URL query strings.
//
// Decoding favours availability over strictness: malformed values are
// dropped (or fall back to their default) instead of failing the request.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/terra-clan/build-directory/internal/models"
)

// Query parameter names. Aliases come from older links still in circulation.
const (
	KeyProfession     = "profession"
	KeyType           = "type"
	KeyLocation       = "location"
	KeySpecialization = "specialization"
	KeySearch         = "search"
	KeyKeyword        = "keyword"
	KeySortBy         = "sortBy"
	KeyBudget         = "budget"
	KeyPage           = "page"
)

// Ignored describes a query parameter that was dropped or corrected during
// decoding. It is diagnostic only and never shown to users.
type Ignored struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Decode parses a query string (with or without the leading '?') into a
// FilterState. Unrecognized keys are ignored.
func Decode(rawQuery string) models.FilterState {
	state, _ := DecodeWithReport(rawQuery)
	return state
}

// DecodeWithReport is Decode that also returns every anomaly it corrected
func DecodeWithReport(rawQuery string) (models.FilterState, []Ignored) {
	state := models.DefaultFilterState()
	var ignored []Ignored

	// ParseQuery keeps every well-formed pair even when it reports an error
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		ignored = append(ignored, Ignored{Key: "", Value: rawQuery, Reason: "malformed pair: " + err.Error()})
	}

	if key, v, ok := first(values, KeyProfession, KeyType); ok {
		p := models.Profession(strings.ToLower(v))
		if p.Valid() {
			state.Profession = p
		} else if v != "" {
			ignored = append(ignored, Ignored{Key: key, Value: v, Reason: "unknown profession"})
		}
	}

	if _, v, ok := first(values, KeyLocation); ok {
		state.Location = v
	}

	if _, v, ok := first(values, KeySpecialization); ok {
		state.Specialization = NormalizeSpecialization(v)
	}

	if _, v, ok := first(values, KeySearch, KeyKeyword); ok {
		state.Search = v
	}

	if _, v, ok := first(values, KeySortBy); ok && v != "" {
		s := models.SortBy(v)
		switch {
		case !s.Valid():
			ignored = append(ignored, Ignored{Key: KeySortBy, Value: v, Reason: "unknown sort option"})
		case s != models.SortRelevance:
			// relevance is the server default and is kept implicit
			state.SortBy = s
		}
	}

	if _, v, ok := first(values, KeyBudget); ok && v != "" {
		if b, ok := ParseBudget(v); ok {
			state.BudgetRange = &b
		} else {
			ignored = append(ignored, Ignored{Key: KeyBudget, Value: v, Reason: "budget is not a min-max numeric pair"})
		}
	}

	if _, v, ok := first(values, KeyPage); ok {
		page, err := strconv.Atoi(v)
		if err != nil || page <= 0 {
			ignored = append(ignored, Ignored{Key: KeyPage, Value: v, Reason: "page must be a positive integer"})
		} else {
			state.Page = page
		}
	}

	return state, ignored
}

// Encode renders only non-empty, non-default fields in a fixed key order so
// equal states always produce identical URLs. The default state encodes to "".
func Encode(state models.FilterState) string {
	var b strings.Builder
	add := func(key, value string) {
		if value == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}

	add(KeyProfession, string(state.Profession))
	add(KeyLocation, state.Location)
	add(KeySpecialization, state.Specialization)
	add(KeySearch, state.Search)
	if state.SortBy != models.SortRelevance {
		add(KeySortBy, string(state.SortBy))
	}
	if state.BudgetRange != nil {
		add(KeyBudget, state.BudgetRange.String())
	}
	if state.Page > 1 {
		add(KeyPage, strconv.Itoa(state.Page))
	}

	return b.String()
}

// ParseBudget parses "min-max" with non-negative integer bounds and min <= max
func ParseBudget(v string) (models.BudgetRange, bool) {
	lo, hi, found := strings.Cut(strings.TrimSpace(v), "-")
	if !found {
		return models.BudgetRange{}, false
	}
	min, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	if err != nil || min < 0 {
		return models.BudgetRange{}, false
	}
	max, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
	if err != nil || max < 0 || min > max {
		return models.BudgetRange{}, false
	}
	return models.BudgetRange{Min: min, Max: max}, true
}

// NormalizeSpecialization trims tags and drops empty and repeated ones,
// keeping first-seen order
func NormalizeSpecialization(v string) string {
	if v == "" {
		return ""
	}
	seen := make(map[string]bool)
	tags := make([]string, 0, 4)
	for _, tag := range strings.Split(v, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return strings.Join(tags, ",")
}

// SplitSpecialization returns the individual tags of a comma-joined set
func SplitSpecialization(v string) []string {
	v = NormalizeSpecialization(v)
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

// first returns the trimmed value of the first key with a non-empty value,
// in priority order, so an empty canonical key falls through to its alias
func first(values url.Values, keys ...string) (string, string, bool) {
	for _, key := range keys {
		vs, ok := values[key]
		if !ok || len(vs) == 0 {
			continue
		}
		if v := strings.TrimSpace(vs[0]); v != "" {
			return key, v, true
		}
	}
	return "", "", false
}

// SetField returns state with a single field replaced by value, validated
// with the same rules as Decode. An empty value clears the field. ok is false
// when the value would have been dropped by Decode; state is then unchanged.
func SetField(state models.FilterState, field models.FilterField, value string) (models.FilterState, bool) {
	single, ignored := DecodeWithReport(url.Values{string(field): {value}}.Encode())
	if len(ignored) > 0 {
		return state, false
	}

	switch field {
	case models.FieldProfession:
		state.Profession = single.Profession
	case models.FieldLocation:
		state.Location = single.Location
	case models.FieldSpecialization:
		state.Specialization = single.Specialization
	case models.FieldSearch:
		state.Search = single.Search
	case models.FieldSortBy:
		state.SortBy = single.SortBy
	case models.FieldBudget:
		state.BudgetRange = single.BudgetRange
	default:
		return state, false
	}
	return state, true
}
