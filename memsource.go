package gridview

import (
	"context"
	"sync"

	"golang.org/x/text/language"
)

// MemorySource serves pages from an in-memory row collection using the
// same filter and sort rules as a client-paginated grid.
type MemorySource struct {
	mu     sync.Mutex
	cols   PreparedColumns
	rows   []Row
	sorter *Sorter
}

func NewMemorySource(cols PreparedColumns, rows []Row, tag language.Tag) *MemorySource {
	return &MemorySource{
		cols:   cols,
		rows:   append([]Row(nil), rows...),
		sorter: NewSorter(tag),
	}
}

// Replace swaps the served collection
func (m *MemorySource) Replace(rows []Row) {
	m.mu.Lock()
	m.rows = append([]Row(nil), rows...)
	m.mu.Unlock()
}

func (m *MemorySource) Fetch(ctx context.Context, p FetchParams) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := FilterRows(m.rows, p.Filters, m.cols)
	if p.Sort != nil {
		spec := SortSpec{Code: p.Sort.Code, Direction: Descending}
		if p.Sort.Order == 1 {
			spec.Direction = Ascending
		}
		if col, ok := m.cols.Column(p.Sort.Code); ok {
			spec.Type = col.Type
			spec.SortAs = col.Attributes.SortAs
		}
		m.sorter.Sort(rows, spec)
	}

	total := len(rows)
	if p.PageSize > 0 {
		start := min(p.Offset(), total)
		end := min(start+p.PageSize, total)
		rows = rows[start:end]
	}
	return &Page{Rows: rows, Info: NewPageInfo(p.Page, p.PageSize, total)}, nil
}
