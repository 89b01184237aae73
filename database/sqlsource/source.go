// Package sqlsource serves grid pages from a Postgres table.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/gnemet/gridview"
	"github.com/gnemet/gridview/database/cursorpool"
)

// Source is a gridview.RowSource over one table or view
type Source struct {
	DB          *sql.DB
	Table       string
	GridPath    string // cursor session key when Pool is set
	Columns     gridview.PreparedColumns
	DefaultSort *gridview.SortParam
	Pool        *cursorpool.Pool
}

func New(db *sql.DB, table string, cols gridview.PreparedColumns) *Source {
	return &Source{DB: db, Table: table, Columns: cols}
}

func (s *Source) Fetch(ctx context.Context, p gridview.FetchParams) (*gridview.Page, error) {
	where, args := s.buildWhere(p.Filters)
	order := s.buildOrder(p.Sort)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", s.Table, where)
	var total int
	if err := s.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count %s: %w", s.Table, err)
	}

	selectQuery := strings.TrimSpace(fmt.Sprintf("SELECT %s FROM %s %s %s",
		s.selectList(), s.Table, where, order))

	var records []map[string]interface{}
	var err error
	if s.Pool != nil && p.PageSize > 0 {
		records, err = s.fetchCursor(ctx, selectQuery, args, p)
	} else {
		records, err = s.fetchDirect(ctx, selectQuery, args, p)
	}
	if err != nil {
		return nil, err
	}

	rows := make([]gridview.Row, len(records))
	for i, r := range records {
		rows[i] = gridview.Row(r)
	}
	return &gridview.Page{Rows: rows, Info: gridview.NewPageInfo(p.Page, p.PageSize, total)}, nil
}

func (s *Source) fetchDirect(ctx context.Context, query string, args []interface{}, p gridview.FetchParams) ([]map[string]interface{}, error) {
	if p.PageSize > 0 {
		query = fmt.Sprintf("%s LIMIT %d OFFSET %d", query, p.PageSize, p.Offset())
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Table, err)
	}
	defer rows.Close()
	return cursorpool.ScanRows(rows)
}

func (s *Source) fetchCursor(ctx context.Context, query string, args []interface{}, p gridview.FetchParams) ([]map[string]interface{}, error) {
	sid := s.GridPath
	if sid == "" {
		sid = s.Table
	}
	if _, err := s.Pool.Open(ctx, sid, query, args...); err != nil {
		return nil, err
	}
	return s.Pool.FetchPage(ctx, sid, p.Offset(), p.PageSize)
}

func (s *Source) selectList() string {
	if len(s.Columns.Columns) == 0 {
		return "*"
	}
	cols := make([]string, 0, len(s.Columns.Columns))
	for _, c := range s.Columns.Columns {
		if c.Nested {
			continue
		}
		cols = append(cols, pq.QuoteIdentifier(c.Code))
	}
	return strings.Join(cols, ", ")
}

func likePattern(v interface{}, prefix, suffix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return prefix + r.Replace(fmt.Sprint(v)) + suffix
}

func argFor(kind gridview.Kind, v interface{}) interface{} {
	switch kind {
	case gridview.KindNumber:
		if f, ok := gridview.ToFloat(v); ok {
			return f
		}
	case gridview.KindDate:
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return fmt.Sprint(v)
}

func listArg(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = fmt.Sprint(e)
		}
		return out
	case string:
		parts := strings.Split(t, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return []string{fmt.Sprint(v)}
}

func dayArg(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("2006-01-02")
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.Format("2006-01-02")
		}
		if len(t) >= 10 {
			return t[:10]
		}
		return t
	}
	return fmt.Sprint(v)
}

func (s *Source) buildWhere(criteria []gridview.FilterCriterion) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}
	argIdx := 1

	for _, c := range criteria {
		// Only filter on configured columns
		col, ok := s.Columns.Column(c.Code)
		if !ok || c.Value == nil || c.Value == "" {
			continue
		}
		field := pq.QuoteIdentifier(c.Code)
		ph := fmt.Sprintf("$%d", argIdx)

		var clause string
		var arg interface{}
		switch c.MatchMode {
		case "", gridview.MatchStartsWith:
			clause, arg = fmt.Sprintf("%s::text ILIKE %s", field, ph), likePattern(c.Value, "", "%")
		case gridview.MatchContains:
			clause, arg = fmt.Sprintf("%s::text ILIKE %s", field, ph), likePattern(c.Value, "%", "%")
		case gridview.MatchEndsWith:
			clause, arg = fmt.Sprintf("%s::text ILIKE %s", field, ph), likePattern(c.Value, "%", "")
		case gridview.MatchEquals:
			clause, arg = fmt.Sprintf("%s = %s", field, ph), argFor(col.Kind, c.Value)
		case gridview.MatchNotEquals:
			clause, arg = fmt.Sprintf("(%s IS NULL OR %s <> %s)", field, field, ph), argFor(col.Kind, c.Value)
		case gridview.MatchIn:
			clause, arg = fmt.Sprintf("%s::text = ANY(%s)", field, ph), pq.Array(listArg(c.Value))
		case gridview.MatchLt:
			clause, arg = fmt.Sprintf("%s < %s", field, ph), argFor(col.Kind, c.Value)
		case gridview.MatchLte:
			clause, arg = fmt.Sprintf("%s <= %s", field, ph), argFor(col.Kind, c.Value)
		case gridview.MatchGt:
			clause, arg = fmt.Sprintf("%s > %s", field, ph), argFor(col.Kind, c.Value)
		case gridview.MatchGte:
			clause, arg = fmt.Sprintf("%s >= %s", field, ph), argFor(col.Kind, c.Value)
		case gridview.MatchBetween:
			clause, arg = fmt.Sprintf("%s::date = %s::date", field, ph), dayArg(c.Value)
		default:
			continue
		}
		clauses = append(clauses, clause)
		args = append(args, arg)
		argIdx++
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Source) buildOrder(sort *gridview.SortParam) string {
	defaultSort := ""
	if s.DefaultSort != nil && s.DefaultSort.Code != "" {
		defaultSort = orderBy(*s.DefaultSort)
	}
	if sort == nil || sort.Code == "" {
		return defaultSort
	}
	if _, ok := s.Columns.Column(sort.Code); !ok {
		return defaultSort
	}
	return orderBy(*sort)
}

// orderBy places nulls first when ascending and last when descending,
// matching the in-memory sort.
func orderBy(sp gridview.SortParam) string {
	field := pq.QuoteIdentifier(sp.Code)
	if sp.Order == 1 {
		return fmt.Sprintf("ORDER BY %s ASC NULLS FIRST", field)
	}
	return fmt.Sprintf("ORDER BY %s DESC NULLS LAST", field)
}
