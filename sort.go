package gridview

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Row maps a column code to its cell value
type Row map[string]interface{}

// ElemID returns the row's element identifier used in event paths
func (r Row) ElemID() string {
	v, ok := r["elemId"]
	if !ok || v == nil {
		return ""
	}
	return cellText(v)
}

// Direction is the sort order multiplier
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// SortSpec describes one sort request
type SortSpec struct {
	Code      string
	Type      string
	SortAs    string
	Direction Direction
}

// Sorter orders rows with type-aware comparison. String columns use the
// collation rules of the sorter's language. A Sorter is not safe for
// concurrent use.
type Sorter struct {
	coll *collate.Collator
}

func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{coll: collate.New(tag)}
}

type sortKey struct {
	null bool
	num  float64
	at   time.Time
	str  string
}

func (s *Sorter) keyOf(kind Kind, v interface{}) sortKey {
	switch kind {
	case KindNumber:
		f, ok := toFloat(v)
		return sortKey{null: !ok, num: f}
	case KindDate:
		t, ok := toTime(v)
		return sortKey{null: !ok, at: t}
	default:
		if v == nil {
			return sortKey{null: true}
		}
		return sortKey{str: cellText(v)}
	}
}

func (s *Sorter) compare(kind Kind, a, b sortKey) int {
	switch {
	case a.null && b.null:
		return 0
	case a.null:
		return -1
	case b.null:
		return 1
	}
	switch kind {
	case KindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case KindDate:
		return a.at.Compare(b.at)
	default:
		return s.coll.CompareString(a.str, b.str)
	}
}

// Sort reorders rows in place. Null and unparsable values rank below
// everything else before the direction is applied, so they lead an
// ascending sort and trail a descending one. Equal keys keep their input
// order.
func (s *Sorter) Sort(rows []Row, spec SortSpec) {
	dir := int(spec.Direction)
	if dir == 0 {
		dir = int(Ascending)
	}
	kind := ResolveKind(spec.Type, spec.SortAs)

	type keyed struct {
		row Row
		key sortKey
	}
	items := make([]keyed, len(rows))
	for i, r := range rows {
		items[i] = keyed{row: r, key: s.keyOf(kind, r[spec.Code])}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return s.compare(kind, items[i].key, items[j].key)*dir < 0
	})

	for i := range items {
		rows[i] = items[i].row
	}
}

// Sorted returns a sorted copy, leaving rows untouched
func (s *Sorter) Sorted(rows []Row, spec SortSpec) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	s.Sort(out, spec)
	return out
}
