package gridview

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// ExportCSV writes the exportable columns of the grid as CSV. The filtered
// view is exported when a filter is active, otherwise every row. Date cells
// are written with the column's date pattern.
func (g *Grid) ExportCSV(w io.Writer) error {
	g.mu.Lock()
	rows := append([]Row(nil), g.currentLocked()...)
	g.mu.Unlock()

	return WriteCSV(w, g.cols, rows)
}

// WriteCSV writes rows as CSV using the exportable columns of cols.
func WriteCSV(w io.Writer, cols PreparedColumns, rows []Row) error {
	var export []DisplayColumn
	for _, c := range cols.Columns {
		if c.Exportable {
			export = append(export, c)
		}
	}

	cw := csv.NewWriter(w)
	header := make([]string, len(export))
	for i, c := range export {
		header[i] = c.Header
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(export))
	for _, r := range rows {
		for i, c := range export {
			record[i] = exportCell(c, r[c.Code])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportCell(c DisplayColumn, v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		if c.Kind == KindDate {
			return FormatDate(t, c.Pattern)
		}
		return t.Format(time.RFC3339)
	}
	return cellText(v)
}
