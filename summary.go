package gridview

import "strings"

// ColumnSummary holds a footer aggregate for one column
type ColumnSummary struct {
	Code  string  `json:"code"`
	Func  string  `json:"func"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// Summarize computes the footer aggregate (SUM, AVG, COUNT, MIN, MAX) of
// every column that declares one. Values that are not numeric are skipped
// by every function except COUNT, which counts non-null cells.
func Summarize(rows []Row, cols PreparedColumns) []ColumnSummary {
	var out []ColumnSummary
	for _, c := range cols.Columns {
		fn := strings.ToUpper(strings.TrimSpace(c.Attributes.Summary))
		if fn == "" {
			continue
		}
		out = append(out, aggregate(rows, c.Code, fn))
	}
	return out
}

func aggregate(rows []Row, code, fn string) ColumnSummary {
	s := ColumnSummary{Code: code, Func: fn}
	var sum, lo, hi float64
	seen := false

	for _, r := range rows {
		v, present := r[code]
		if fn == "COUNT" {
			if present && v != nil {
				s.Count++
			}
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			continue
		}
		s.Count++
		sum += f
		if !seen || f < lo {
			lo = f
		}
		if !seen || f > hi {
			hi = f
		}
		seen = true
	}

	switch fn {
	case "COUNT":
		s.Value = float64(s.Count)
	case "AVG":
		if s.Count > 0 {
			s.Value = sum / float64(s.Count)
		}
	case "MIN":
		s.Value = lo
	case "MAX":
		s.Value = hi
	default:
		s.Value = sum
	}
	return s
}

// Summary aggregates the rows currently in view, filtered or not
func (g *Grid) Summary() []ColumnSummary {
	g.mu.Lock()
	rows := append([]Row(nil), g.currentLocked()...)
	g.mu.Unlock()
	return Summarize(rows, g.cols)
}
