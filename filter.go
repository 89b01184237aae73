package gridview

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Match modes understood by the local filter
const (
	MatchStartsWith = "startsWith"
	MatchContains   = "contains"
	MatchEndsWith   = "endsWith"
	MatchEquals     = "equals"
	MatchNotEquals  = "notEquals"
	MatchIn         = "in"
	MatchLt         = "lt"
	MatchLte        = "lte"
	MatchGt         = "gt"
	MatchGte        = "gte"
	MatchBetween    = "between"
)

// FilterCriterion is one active column filter
type FilterCriterion struct {
	Code      string      `json:"code"`
	Value     interface{} `json:"value"`
	MatchMode string      `json:"matchMode,omitempty"`
}

// FilterSet holds at most one criterion per column, in the order the
// columns were first filtered.
type FilterSet struct {
	order  []string
	byCode map[string]FilterCriterion
}

func NewFilterSet() *FilterSet {
	return &FilterSet{byCode: make(map[string]FilterCriterion)}
}

func isEmptyFilterValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	case time.Time:
		return t.IsZero()
	}
	return false
}

// Set installs c as the criterion for its column. An empty value removes
// the column's criterion instead. It reports whether the set changed.
func (fs *FilterSet) Set(c FilterCriterion) bool {
	if isEmptyFilterValue(c.Value) {
		return fs.Remove(c.Code)
	}
	if c.MatchMode == "" {
		c.MatchMode = MatchStartsWith
	}
	if _, ok := fs.byCode[c.Code]; !ok {
		fs.order = append(fs.order, c.Code)
	}
	fs.byCode[c.Code] = c
	return true
}

func (fs *FilterSet) Remove(code string) bool {
	if _, ok := fs.byCode[code]; !ok {
		return false
	}
	delete(fs.byCode, code)
	for i, c := range fs.order {
		if c == code {
			fs.order = append(fs.order[:i], fs.order[i+1:]...)
			break
		}
	}
	return true
}

func (fs *FilterSet) Get(code string) (FilterCriterion, bool) {
	c, ok := fs.byCode[code]
	return c, ok
}

func (fs *FilterSet) Len() int { return len(fs.order) }

func (fs *FilterSet) Clear() {
	fs.order = nil
	fs.byCode = make(map[string]FilterCriterion)
}

// Criteria returns a copy of the active criteria
func (fs *FilterSet) Criteria() []FilterCriterion {
	out := make([]FilterCriterion, 0, len(fs.order))
	for _, code := range fs.order {
		out = append(out, fs.byCode[code])
	}
	return out
}

// foldText lowercases and strips combining marks so "Élan" matches "elan".
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

func textOf(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return cellText(v)
}

// Match reports whether value passes filter under the given mode. kind is
// the prepared column kind and selects numeric or temporal comparison for
// the ordering modes.
func Match(mode string, kind Kind, value, filter interface{}) bool {
	if isEmptyFilterValue(filter) {
		return true
	}
	switch mode {
	case "", MatchStartsWith:
		return value != nil && strings.HasPrefix(foldText(textOf(value)), foldText(textOf(filter)))
	case MatchContains:
		return value != nil && strings.Contains(foldText(textOf(value)), foldText(textOf(filter)))
	case MatchEndsWith:
		return value != nil && strings.HasSuffix(foldText(textOf(value)), foldText(textOf(filter)))
	case MatchEquals:
		return value != nil && compareValues(kind, value, filter) == 0
	case MatchNotEquals:
		return value == nil || compareValues(kind, value, filter) != 0
	case MatchIn:
		for _, f := range filterList(filter) {
			if value != nil && compareValues(kind, value, f) == 0 {
				return true
			}
		}
		return false
	case MatchLt:
		return value != nil && compareValues(kind, value, filter) < 0
	case MatchLte:
		return value != nil && compareValues(kind, value, filter) <= 0
	case MatchGt:
		return value != nil && compareValues(kind, value, filter) > 0
	case MatchGte:
		return value != nil && compareValues(kind, value, filter) >= 0
	case MatchBetween:
		return Between(value, filter)
	}
	return false
}

// Between is the same-day date predicate. Both sides must read as dates;
// the time of day is ignored.
func Between(value, filter interface{}) bool {
	v, ok := toTime(value)
	if !ok {
		return false
	}
	f, ok := toTime(filter)
	if !ok {
		return false
	}
	return sameDay(v, f)
}

func filterList(filter interface{}) []interface{} {
	switch t := filter.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case string:
		parts := strings.Split(t, ",")
		out := make([]interface{}, len(parts))
		for i, s := range parts {
			out[i] = strings.TrimSpace(s)
		}
		return out
	}
	return []interface{}{filter}
}

// compareValues orders a against b. Numbers and dates compare by value when
// both sides parse, everything else compares as folded text.
func compareValues(kind Kind, a, b interface{}) int {
	if kind == KindNumber {
		if fa, ok := toFloat(a); ok {
			if fb, ok := toFloat(b); ok {
				switch {
				case fa < fb:
					return -1
				case fa > fb:
					return 1
				}
				return 0
			}
		}
	}
	if kind == KindDate {
		if ta, ok := toTime(a); ok {
			if tb, ok := toTime(b); ok {
				return ta.Compare(tb)
			}
		}
	}
	return strings.Compare(foldText(textOf(a)), foldText(textOf(b)))
}

// FilterRows returns the rows matching every criterion, in input order.
// Criteria on codes that are not in cols are compared as text.
func FilterRows(rows []Row, criteria []FilterCriterion, cols PreparedColumns) []Row {
	if len(criteria) == 0 {
		out := make([]Row, len(rows))
		copy(out, rows)
		return out
	}
	kinds := make([]Kind, len(criteria))
	for i, c := range criteria {
		if col, ok := cols.Column(c.Code); ok {
			kinds[i] = col.Kind
		}
	}

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		keep := true
		for i, c := range criteria {
			if !Match(c.MatchMode, kinds[i], r[c.Code], c.Value) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}
