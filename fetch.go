package gridview

import (
	"fmt"
	"net/http"
	"strings"
)

// ActionExecute is the event action used for grid data loads
const ActionExecute = "$execute"

// Request is an outbound event handed to an EventProcessor
type Request struct {
	Path        string                 `json:"path"`
	Action      string                 `json:"action,omitempty"`
	Method      string                 `json:"method"`
	QueryString string                 `json:"queryString,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
}

// SortParam is the sort column and order sent with a lazy load. Order 1 is
// ascending, anything else descending.
type SortParam struct {
	Code  string
	Order int
}

// Encode renders the sortBy value, e.g. "name,DESC"
func (s SortParam) Encode() string {
	dir := "ASC"
	if s.Order != 1 {
		dir = "DESC"
	}
	return s.Code + "," + dir
}

// ParseSortParam reads a "code,DIR" value. A missing or unknown direction
// reads as ascending.
func ParseSortParam(v string) (*SortParam, bool) {
	code, dir, _ := strings.Cut(v, ",")
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false
	}
	order := 1
	if strings.EqualFold(strings.TrimSpace(dir), "DESC") {
		order = -1
	}
	return &SortParam{Code: code, Order: order}, true
}

// queryString composes "&sortBy=..&pageSize=..&page=..". The sort parameter
// always precedes pagination.
func queryString(pageIdx, pageSize int, sort *SortParam) string {
	var b strings.Builder
	if sort != nil && sort.Code != "" {
		b.WriteString("&sortBy=")
		b.WriteString(sort.Encode())
	}
	if pageIdx >= 0 {
		fmt.Fprintf(&b, "&pageSize=%d&page=%d", pageSize, pageIdx)
	}
	return b.String()
}

// BuildFetchRequest describes a server-paginated page load. first is the
// offset of the first row on the requested page.
func BuildFetchRequest(path string, first, pageSize int, sort *SortParam, criteria []FilterCriterion) Request {
	pageIdx := 0
	if first > 0 && pageSize > 0 {
		pageIdx = first / pageSize
	}

	req := Request{
		Path:        path,
		Action:      ActionExecute,
		Method:      http.MethodPost,
		QueryString: queryString(pageIdx, pageSize, sort),
	}
	if len(criteria) > 0 {
		filters := make([]FilterCriterion, len(criteria))
		copy(filters, criteria)
		req.Payload = map[string]interface{}{"filters": filters}
	}
	return req
}

// BuildLoadRequest describes the eager first load of a client-paginated grid
func BuildLoadRequest(path string, pageSize int) Request {
	return Request{
		Path:        path,
		Action:      ActionExecute,
		Method:      http.MethodGet,
		QueryString: queryString(0, pageSize, nil),
	}
}
