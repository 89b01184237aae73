package gridview

// PageState tracks the visible row range of a grid
type PageState struct {
	Offset       int `json:"offset"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
	RowStart     int `json:"rowStart"`
	RowEnd       int `json:"rowEnd"`
}

// Recompute returns the 1-based display range of the first page. A page
// size of zero or less shows every record on one page.
func Recompute(total, pageSize int) (start, end int) {
	if total <= 0 {
		return 0, 0
	}
	if pageSize <= 0 || total < pageSize {
		return 1, total
	}
	return 1, pageSize
}

// PageChange returns the display range of the page starting at offset.
func PageChange(offset, pageSize, total int) (start, end int) {
	if total <= 0 {
		return 0, 0
	}
	if offset < 0 {
		offset = 0
	}
	start = offset + 1
	if pageSize > 0 && offset+pageSize < total {
		end = offset + pageSize
	} else {
		end = total
	}
	if start > end {
		start = end
	}
	return start, end
}

func (p *PageState) recompute() {
	if p.TotalRecords < 0 {
		p.TotalRecords = 0
	}
	p.RowStart, p.RowEnd = Recompute(p.TotalRecords, p.PageSize)
}

func (p *PageState) pageChange(offset, pageSize int) {
	p.Offset = offset
	if pageSize > 0 {
		p.PageSize = pageSize
	}
	p.RowStart, p.RowEnd = PageChange(offset, p.PageSize, p.TotalRecords)
}
