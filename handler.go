package gridview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

// FetchParams captures sort, filters and pagination of a page request
type FetchParams struct {
	Sort     *SortParam
	Filters  []FilterCriterion
	Page     int
	PageSize int
}

// Offset is the index of the first row on the requested page
func (p FetchParams) Offset() int {
	if p.Page <= 0 || p.PageSize <= 0 {
		return 0
	}
	return p.Page * p.PageSize
}

// Page is one page of rows as returned by a RowSource
type Page struct {
	Rows []Row
	Info PageInfo
}

// NewPageInfo describes page number of the given size over total rows
func NewPageInfo(number, size, total int) PageInfo {
	last := true
	if size > 0 {
		last = (number+1)*size >= total
	}
	return PageInfo{
		Number:        number,
		Size:          size,
		TotalElements: total,
		First:         number == 0,
		Last:          last,
	}
}

// RowSource fetches pages of rows for a server-paginated grid
type RowSource interface {
	Fetch(ctx context.Context, p FetchParams) (*Page, error)
}

// Handler answers grid load requests with a Notification for its path
type Handler struct {
	Path            string
	Source          RowSource
	DefaultPageSize int
	Logger          *slog.Logger
}

func NewHandler(path string, src RowSource, defaultPageSize int) *Handler {
	return &Handler{
		Path:            path,
		Source:          src,
		DefaultPageSize: defaultPageSize,
		Logger:          slog.Default(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		http.Error(w, ErrNoSource.Error(), http.StatusInternalServerError)
		return
	}
	params, err := h.ParseParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.Source.Fetch(r.Context(), params)
	if err != nil {
		h.logger().Error("fetch failed", "path", h.Path, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(Notification{Path: h.Path, Rows: page.Rows, Page: page.Info}); err != nil {
		h.logger().Error("encode notification failed", "path", h.Path, "error", err)
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// ParseParams reads sortBy, pageSize and page from the query string and
// the filter list from a JSON body.
func (h *Handler) ParseParams(r *http.Request) (FetchParams, error) {
	q := r.URL.Query()
	p := FetchParams{PageSize: h.DefaultPageSize}

	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid pageSize %q", v)
		}
		p.PageSize = n
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid page %q", v)
		}
		p.Page = n
	}
	if v := q.Get("sortBy"); v != "" {
		if sp, ok := ParseSortParam(v); ok {
			p.Sort = sp
		}
	}

	if r.Body != nil && r.Method != http.MethodGet {
		var body struct {
			Filters []FilterCriterion `json:"filters"`
		}
		err := json.NewDecoder(r.Body).Decode(&body)
		switch {
		case errors.Is(err, io.EOF):
		case err != nil:
			return p, fmt.Errorf("invalid filter payload: %w", err)
		default:
			p.Filters = body.Filters
		}
	}
	return p, nil
}
