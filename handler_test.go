package gridview

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func numberedRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{"elemId": i + 1, "name": string(rune('a' + i%26))}
	}
	return rows
}

func TestParseParams(t *testing.T) {
	h := &Handler{DefaultPageSize: 10}

	r := httptest.NewRequest(http.MethodGet, "/emp?action=%24execute&sortBy=name,DESC&pageSize=25&page=2", nil)
	p, err := h.ParseParams(r)
	require.NoError(t, err)
	assert.Equal(t, 25, p.PageSize)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 50, p.Offset())
	assert.Equal(t, &SortParam{Code: "name", Order: -1}, p.Sort)
	assert.Empty(t, p.Filters)

	body := `{"filters":[{"code":"name","value":"an","matchMode":"contains"}]}`
	r = httptest.NewRequest(http.MethodPost, "/emp", strings.NewReader(body))
	p, err = h.ParseParams(r)
	require.NoError(t, err)
	assert.Equal(t, 10, p.PageSize, "default page size")
	assert.Equal(t, []FilterCriterion{{Code: "name", Value: "an", MatchMode: MatchContains}}, p.Filters)

	r = httptest.NewRequest(http.MethodPost, "/emp", nil)
	_, err = h.ParseParams(r)
	assert.NoError(t, err, "empty body is fine")

	r = httptest.NewRequest(http.MethodPost, "/emp", strings.NewReader("{"))
	_, err = h.ParseParams(r)
	assert.Error(t, err)

	r = httptest.NewRequest(http.MethodGet, "/emp?page=x", nil)
	_, err = h.ParseParams(r)
	assert.Error(t, err)
}

func TestHandlerServesPages(t *testing.T) {
	cols := PrepareColumns([]ColumnDescriptor{{Code: "elemId", Type: "int"}, {Code: "name"}}, nil)
	src := NewMemorySource(cols, numberedRows(23), language.English)
	h := NewHandler("/emp", src, 10)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/emp?sortBy=elemId,DESC&pageSize=10&page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var n Notification
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&n))
	assert.Equal(t, "/emp", n.Path)
	assert.Equal(t, PageInfo{Number: 2, Size: 10, TotalElements: 23, First: false, Last: true}, n.Page)
	require.Len(t, n.Rows, 3)
	assert.Equal(t, 3.0, n.Rows[0]["elemId"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/emp?pageSize=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerWithoutSource(t *testing.T) {
	rec := httptest.NewRecorder()
	(&Handler{Path: "/emp"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/emp", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMemorySourceFilters(t *testing.T) {
	cols := PrepareColumns([]ColumnDescriptor{{Code: "elemId", Type: "int"}, {Code: "name"}}, nil)
	src := NewMemorySource(cols, numberedRows(30), language.English)

	page, err := src.Fetch(context.Background(), FetchParams{
		Filters:  []FilterCriterion{{Code: "name", Value: "a", MatchMode: MatchEquals}},
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Info.TotalElements)
	assert.Equal(t, []interface{}{1, 27}, column(page.Rows, "elemId"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Fetch(ctx, FetchParams{})
	assert.Error(t, err)
}

func TestHTTPProcessorURL(t *testing.T) {
	p := NewHTTPProcessor("http://grid.local/", nil)
	assert.Equal(t, "http://grid.local/emp?action=%24execute&pageSize=10&page=0",
		p.URL(BuildLoadRequest("/emp", 10)))
	assert.Equal(t, "http://grid.local/emp/1/open", p.URL(Request{Path: "emp/1/open"}))
}

func TestLazyGridEndToEnd(t *testing.T) {
	cols := []ColumnDescriptor{{Code: "elemId", Type: "int"}, {Code: "name", Attributes: Attributes{Filter: true}}}
	src := NewMemorySource(PrepareColumns(cols, nil), numberedRows(23), language.English)

	mux := http.NewServeMux()
	mux.Handle("/emp", NewHandler("/emp", src, 10))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	bus := NewBroadcaster()
	g := New(context.Background(), Config{Path: "/emp", PageSize: 10, LazyLoad: true, Columns: cols},
		WithEventProcessor(NewHTTPProcessor(srv.URL, bus)))
	defer g.Close()
	g.Subscribe(bus)

	g.Start()
	assert.Eventually(t, func() bool { return g.State().TotalRecords == 23 }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, g.Rows(), 10)
	assert.Equal(t, 1, g.State().RowStart)
	assert.Equal(t, 10, g.State().RowEnd)

	g.Filter("b", "name", MatchEquals)
	assert.Eventually(t, func() bool { return g.State().TotalRecords == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []interface{}{json.Number("2")}, column(g.Rows(), "elemId"))
}

func TestLazyGridKeepsLargeNumbers(t *testing.T) {
	cols := []ColumnDescriptor{
		{Code: "elemId", Type: "long"},
		{Code: "salary", Label: "Salary", Type: "double"},
		{Code: "open", Attributes: Attributes{Alias: "Link", Behavior: ActionExecute}},
	}
	rows := []Row{{"elemId": int64(1234567), "salary": 2500000}}
	src := NewMemorySource(PrepareColumns(cols, nil), rows, language.English)

	srv := httptest.NewServer(NewHandler("/emp", src, 10))
	defer srv.Close()

	bus := NewBroadcaster()
	g := New(context.Background(), Config{Path: "/emp", PageSize: 10, LazyLoad: true, Columns: cols},
		WithEventProcessor(NewHTTPProcessor(srv.URL, bus)))
	defer g.Close()
	g.Subscribe(bus)

	g.Start()
	require.Eventually(t, func() bool { return len(g.Rows()) == 1 }, 2*time.Second, 10*time.Millisecond)

	row := g.Rows()[0]
	assert.Equal(t, "1234567", row.ElemID())
	assert.Equal(t, "/emp/1234567/open", g.LinkURI("open", row))
	assert.Equal(t, "2500000", g.CellDisplay(row, "salary"))

	var buf bytes.Buffer
	require.NoError(t, g.ExportCSV(&buf))
	assert.Equal(t, "elemId,Salary,open\n1234567,2500000,\n", buf.String())
}

func TestHandlerLogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	cols := PrepareColumns([]ColumnDescriptor{{Code: "elemId"}, {Code: "bad"}}, nil)
	src := NewMemorySource(cols, []Row{{"elemId": 1, "bad": make(chan int)}}, language.English)

	h := NewHandler("/emp", src, 10)
	h.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/emp", nil))
	assert.Contains(t, logs.String(), "encode notification failed")
}
