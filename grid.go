package gridview

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
)

// EventProcessor executes outbound requests. The grid never waits for the
// result: data comes back later as a Notification.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, req Request) error
}

// Config is the grid's element configuration
type Config struct {
	Path                 string             `json:"path" yaml:"path"`
	PageSize             int                `json:"pageSize" yaml:"pageSize"`
	LazyLoad             bool               `json:"lazyLoad,omitempty" yaml:"lazyLoad,omitempty"`
	OnLoad               bool               `json:"onLoad,omitempty" yaml:"onLoad,omitempty"`
	RowSelection         bool               `json:"rowSelection,omitempty" yaml:"rowSelection,omitempty"`
	PostButtonURL        string             `json:"postButtonUrl,omitempty" yaml:"postButtonUrl,omitempty"`
	PostButtonTargetPath string             `json:"postButtonTargetPath,omitempty" yaml:"postButtonTargetPath,omitempty"`
	Columns              []ColumnDescriptor `json:"columns" yaml:"columns"`
	Rows                 []Row              `json:"gridList,omitempty" yaml:"gridList,omitempty"`
}

// LazyLoadEvent is a page, sort or filter change on a server-paginated grid
type LazyLoadEvent struct {
	First   int
	Sort    *SortParam
	Filters []FilterCriterion
}

type options struct {
	events   EventProcessor
	labels   LabelResolver
	logger   *slog.Logger
	lang     language.Tag
	after    AfterFunc
	delay    time.Duration
	onValue  func([]Row)
	onFilter func([]FilterCriterion)
}

// Option configures a Grid
type Option func(*options)

func WithEventProcessor(p EventProcessor) Option { return func(o *options) { o.events = p } }
func WithLabelResolver(r LabelResolver) Option   { return func(o *options) { o.labels = r } }
func WithLogger(l *slog.Logger) Option           { return func(o *options) { o.logger = l } }
func WithLanguage(tag language.Tag) Option       { return func(o *options) { o.lang = tag } }
func WithAfterFunc(f AfterFunc) Option           { return func(o *options) { o.after = f } }
func WithFilterDelay(d time.Duration) Option     { return func(o *options) { o.delay = d } }

// OnValueChanged registers a callback fired whenever the row collection is replaced
func OnValueChanged(fn func([]Row)) Option { return func(o *options) { o.onValue = fn } }

// OnFilterChanged registers a callback fired whenever the active filters change
func OnFilterChanged(fn func([]FilterCriterion)) Option {
	return func(o *options) { o.onFilter = fn }
}

// Grid owns one grid instance: its rows, filters, sort and page state.
// Methods are safe to call from any goroutine.
type Grid struct {
	mu sync.Mutex

	cfg      Config
	cols     PreparedColumns
	rows     []Row
	filtered []Row // nil while no filter is active
	filters  *FilterSet
	inputs   map[string]string
	sort     *SortSpec
	page     PageState
	selected []Row
	showFilt bool

	sorter   *Sorter
	debounce *Debouncer
	events   EventProcessor
	log      *slog.Logger
	onValue  func([]Row)
	onFilter func([]FilterCriterion)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsubs []func()
	closed bool
}

// effects collects what a locked operation wants done once the lock is released
type effects struct {
	values         []Row
	valuesChanged  bool
	filters        []FilterCriterion
	filtersChanged bool
	req            *Request
}

// New builds a grid from cfg. The grid stops dispatching once ctx is
// cancelled or Close is called.
func New(ctx context.Context, cfg Config, opts ...Option) *Grid {
	o := options{
		lang:   language.English,
		delay:  DefaultFilterDelay,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.labels == nil {
		base, _ := o.lang.Base()
		o.labels = LangLabels(base.String())
	}

	gctx, cancel := context.WithCancel(ctx)
	g := &Grid{
		cfg:      cfg,
		cols:     PrepareColumns(cfg.Columns, o.labels),
		filters:  NewFilterSet(),
		inputs:   make(map[string]string),
		page:     PageState{PageSize: cfg.PageSize},
		sorter:   NewSorter(o.lang),
		debounce: NewDebouncer(o.delay, o.after),
		events:   o.events,
		log:      o.logger.With("grid", cfg.Path),
		onValue:  o.onValue,
		onFilter: o.onFilter,
		ctx:      gctx,
		cancel:   cancel,
	}

	if len(cfg.Rows) > 0 {
		g.rows = append([]Row(nil), cfg.Rows...)
		g.page.TotalRecords = len(g.rows)
		g.page.recompute()
	}
	return g
}

// Start applies the configured initial filters and dispatches the first load.
func (g *Grid) Start() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	var eff effects
	for _, col := range g.cols.Columns {
		a := col.Attributes
		if a.FilterValue == "" {
			continue
		}
		g.filters.Set(FilterCriterion{Code: col.Code, Value: a.FilterValue, MatchMode: a.FilterMode})
		g.inputs[col.Code] = a.FilterValue
		eff.filtersChanged = true
	}
	if eff.filtersChanged {
		eff.filters = g.filters.Criteria()
	}

	switch {
	case g.cfg.LazyLoad:
		req := BuildFetchRequest(g.cfg.Path, 0, g.cfg.PageSize, nil, g.filters.Criteria())
		eff.req = &req
	default:
		if eff.filtersChanged {
			g.refilterLocked()
		}
		if g.cfg.OnLoad {
			req := BuildLoadRequest(g.cfg.Path, g.cfg.PageSize)
			eff.req = &req
		}
	}
	g.mu.Unlock()
	g.flush(eff)
}

// Subscribe consumes notifications from src until the grid is closed.
// Notifications for other paths are ignored.
func (g *Grid) Subscribe(src UpdateSource) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	ch, cancel := src.Subscribe(16)
	g.unsubs = append(g.unsubs, cancel)
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		for n := range ch {
			g.HandleUpdate(n)
		}
	}()
}

// HandleUpdate replaces the row collection from a notification bound to
// this grid's path.
func (g *Grid) HandleUpdate(n Notification) {
	g.mu.Lock()
	if g.closed || n.Path != g.cfg.Path {
		g.mu.Unlock()
		return
	}
	var eff effects
	g.rows = append([]Row(nil), n.Rows...)

	if g.cfg.LazyLoad {
		g.page.TotalRecords = n.Page.TotalElements
		if n.Page.First {
			g.page.Offset = 0
			g.page.recompute()
		} else {
			g.page.pageChange(g.page.Offset, 0)
		}
	} else {
		g.refilterLocked()
	}
	g.selected = nil
	eff.valuesChanged = true
	eff.values = append([]Row(nil), g.rows...)
	g.mu.Unlock()
	g.flush(eff)
}

// refilterLocked rebuilds the filtered view and resets paging to the first page.
func (g *Grid) refilterLocked() {
	if g.filters.Len() > 0 {
		g.filtered = FilterRows(g.rows, g.filters.Criteria(), g.cols)
		g.page.TotalRecords = len(g.filtered)
	} else {
		g.filtered = nil
		g.page.TotalRecords = len(g.rows)
	}
	g.page.Offset = 0
	g.page.recompute()
}

func (g *Grid) lazyRequestLocked(first int) *Request {
	var sp *SortParam
	if g.sort != nil {
		sp = &SortParam{Code: g.sort.Code, Order: int(g.sort.Direction)}
	}
	req := BuildFetchRequest(g.cfg.Path, first, g.cfg.PageSize, sp, g.filters.Criteria())
	return &req
}

// Filter sets the column's criterion. An empty value clears it.
func (g *Grid) Filter(value interface{}, code, mode string) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	eff := g.applyFilterLocked(FilterCriterion{Code: code, Value: value, MatchMode: mode})
	g.mu.Unlock()
	g.flush(eff)
}

func (g *Grid) applyFilterLocked(c FilterCriterion) effects {
	var eff effects
	if !g.filters.Set(c) {
		return eff
	}
	eff.filtersChanged = true
	eff.filters = g.filters.Criteria()
	if g.cfg.LazyLoad {
		g.page.Offset = 0
		eff.req = g.lazyRequestLocked(0)
	} else {
		g.refilterLocked()
	}
	return eff
}

// InputFilter records typed filter input and applies it once typing has
// been quiet for the filter delay. Only the last input in a burst is applied.
func (g *Grid) InputFilter(raw, code, mode string) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.inputs[code] = raw
	g.mu.Unlock()

	g.debounce.Trigger(func() {
		g.applyInput(raw, code, mode)
	})
}

// applyInput applies debounced input unless the column's input has changed
// since, e.g. by a clear that raced the timer.
func (g *Grid) applyInput(raw, code, mode string) {
	g.mu.Lock()
	if g.closed || g.inputs[code] != raw {
		g.mu.Unlock()
		return
	}
	eff := g.applyFilterLocked(FilterCriterion{Code: code, Value: raw, MatchMode: mode})
	g.mu.Unlock()
	g.flush(eff)
}

// DateFilter filters a date column to a single day. raw is a time.Time or
// a string in pattern; an empty pattern falls back to the column's pattern.
// Input that does not parse leaves the filters as they are.
func (g *Grid) DateFilter(raw interface{}, code, pattern string) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	if pattern == "" {
		if col, ok := g.cols.Column(code); ok {
			pattern = col.Pattern
		}
		if pattern == "" {
			pattern = PatternDate
		}
	}

	var day time.Time
	ok := false
	switch v := raw.(type) {
	case time.Time:
		day, ok = v, !v.IsZero()
	case string:
		if t, err := ParseDate(v, pattern, time.Local); err == nil {
			day, ok = t, true
		} else {
			g.log.Debug("ignoring unparsable date filter", "column", code, "value", v, "pattern", pattern)
		}
	}

	var eff effects
	if ok {
		eff = g.applyFilterLocked(FilterCriterion{Code: code, Value: truncateDay(day), MatchMode: MatchBetween})
	} else if !g.cfg.LazyLoad {
		g.page.recompute()
	}
	g.mu.Unlock()
	g.flush(eff)
}

// ClearFilter removes the column's criterion and empties its input.
func (g *Grid) ClearFilter(code string) {
	g.debounce.Cancel()
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.inputs[code] = ""
	eff := g.applyFilterLocked(FilterCriterion{Code: code})
	g.mu.Unlock()
	g.flush(eff)
}

// ClearAll removes every criterion, every input and the sort, and returns
// to the first page of the full collection.
func (g *Grid) ClearAll() {
	g.debounce.Cancel()
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	eff := effects{filtersChanged: g.filters.Len() > 0}
	g.filters.Clear()
	g.inputs = make(map[string]string)
	g.sort = nil
	if g.cfg.LazyLoad {
		g.page.Offset = 0
		eff.req = g.lazyRequestLocked(0)
	} else {
		g.refilterLocked()
	}
	g.mu.Unlock()
	g.flush(eff)
}

// Sort orders the grid by one column. Client grids sort their own rows in
// place; lazy grids request the first page in the new order.
func (g *Grid) Sort(code string, dir Direction) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	col, ok := g.cols.Column(code)
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("sort %q: %w", code, ErrUnknownColumn)
	}
	spec := SortSpec{Code: code, Type: col.Type, SortAs: col.Attributes.SortAs, Direction: dir}
	g.sort = &spec

	var eff effects
	if g.cfg.LazyLoad {
		g.page.Offset = 0
		eff.req = g.lazyRequestLocked(0)
	} else {
		g.sorter.Sort(g.rows, spec)
		g.refilterLocked()
	}
	g.mu.Unlock()
	g.flush(eff)
	return nil
}

// Paginate moves to the page starting at row offset first.
func (g *Grid) Paginate(first, rows int) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.page.pageChange(first, rows)
	var eff effects
	if g.cfg.LazyLoad {
		eff.req = g.lazyRequestLocked(first)
	}
	g.mu.Unlock()
	g.flush(eff)
}

// LoadLazy requests a page described by an explicit lazy-load event.
func (g *Grid) LoadLazy(ev LazyLoadEvent) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	req := BuildFetchRequest(g.cfg.Path, ev.First, g.cfg.PageSize, ev.Sort, ev.Filters)
	g.mu.Unlock()
	g.flush(effects{req: &req})
}

// flush runs callbacks and dispatch outside the lock
func (g *Grid) flush(eff effects) {
	if eff.valuesChanged && g.onValue != nil {
		g.onValue(eff.values)
	}
	if eff.filtersChanged && g.onFilter != nil {
		g.onFilter(eff.filters)
	}
	if eff.req != nil {
		g.dispatch(*eff.req)
	}
}

// dispatch hands req to the event processor on its own goroutine.
func (g *Grid) dispatch(req Request) {
	g.mu.Lock()
	if g.closed || g.events == nil {
		g.mu.Unlock()
		if g.events == nil {
			g.log.Debug("no event processor, dropping request", "path", req.Path)
		}
		return
	}
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		if err := g.events.ProcessEvent(g.ctx, req); err != nil {
			g.log.Error("event dispatch failed", "path", req.Path, "method", req.Method, "error", err)
		}
	}()
}

// Rows returns the full row collection in its current order
func (g *Grid) Rows() []Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Row(nil), g.rows...)
}

// Filtered returns the filtered view, or nil when no filter is active
func (g *Grid) Filtered() []Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.filtered == nil {
		return nil
	}
	return append([]Row(nil), g.filtered...)
}

func (g *Grid) currentLocked() []Row {
	if g.filtered != nil {
		return g.filtered
	}
	return g.rows
}

// View returns the rows on the current page. Lazy grids hold only the
// current page already.
func (g *Grid) View() []Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	src := g.currentLocked()
	if g.cfg.LazyLoad || g.page.PageSize <= 0 {
		return append([]Row(nil), src...)
	}
	start := min(g.page.Offset, len(src))
	end := min(start+g.page.PageSize, len(src))
	return append([]Row(nil), src[start:end]...)
}

func (g *Grid) State() PageState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.page
}

func (g *Grid) Columns() PreparedColumns {
	return g.cols
}

// ColumnsToShow counts the rendered columns, including the selection checkbox
func (g *Grid) ColumnsToShow() int {
	n := g.cols.VisibleCount
	if g.cfg.RowSelection {
		n++
	}
	return n
}

func (g *Grid) Filters() []FilterCriterion {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.filters.Criteria()
}

// FilterInput returns the raw input typed for a column
func (g *Grid) FilterInput(code string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inputs[code]
}

// IsFilterActive reports whether the column has non-empty filter input
func (g *Grid) IsFilterActive(code string) bool {
	return g.FilterInput(code) != ""
}

func (g *Grid) ToggleFilters() {
	g.mu.Lock()
	g.showFilt = !g.showFilt
	g.mu.Unlock()
}

func (g *Grid) ShowFilters() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.showFilt
}

// CellDisplay renders a cell for display. Missing values show the column
// placeholder and dates use the column pattern.
func (g *Grid) CellDisplay(row Row, code string) string {
	col, ok := g.cols.Column(code)
	v := row[code]
	if v == nil || v == "" {
		if ok {
			return col.Attributes.Placeholder
		}
		return ""
	}
	if ok && col.Kind == KindDate {
		if t, parsed := toTime(v); parsed {
			return FormatDate(t, col.Pattern)
		}
	}
	return cellText(v)
}

// RowExpanderHidden reports whether the row's expander toggle is hidden
func (g *Grid) RowExpanderHidden(row Row) bool {
	if g.cols.RowExpanderCode == "" {
		return true
	}
	return truthy(row[g.cols.RowExpanderCode])
}

var uriParamPattern = regexp.MustCompile(`{([\s\S]*?)}`)

// LinkURI builds the event path for a link cell. {name} placeholders are
// replaced with the row's value for name when it has one.
func (g *Grid) LinkURI(code string, row Row) string {
	uri := g.cfg.Path + "/" + row.ElemID() + "/" + code
	for _, m := range uriParamPattern.FindAllString(uri, -1) {
		name := m[1 : len(m)-1]
		if v := row[name]; truthy(v) {
			uri = strings.ReplaceAll(uri, m, cellText(v))
		}
	}
	return uri
}

// ClickLink dispatches the action configured on a Link column for row.
func (g *Grid) ClickLink(code string, row Row) error {
	col, ok := g.cols.Column(code)
	if !ok {
		return fmt.Errorf("link %q: %w", code, ErrUnknownColumn)
	}
	method := col.Attributes.Method
	if method == "" {
		method = http.MethodGet
	}
	payload := make(map[string]interface{}, len(row))
	for k, v := range row {
		payload[k] = v
	}
	g.dispatch(Request{
		Path:    g.LinkURI(code, row),
		Action:  col.Attributes.Behavior,
		Method:  method,
		Payload: payload,
	})
	return nil
}

func sameRow(a, b Row) bool {
	if id := a.ElemID(); id != "" {
		return id == b.ElemID()
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func (g *Grid) SelectRow(row Row) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.selected {
		if sameRow(r, row) {
			return
		}
	}
	g.selected = append(g.selected, row)
}

func (g *Grid) UnselectRow(row Row) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, r := range g.selected {
		if sameRow(r, row) {
			g.selected = append(g.selected[:i], g.selected[i+1:]...)
			return
		}
	}
}

func (g *Grid) SelectedRows() []Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Row(nil), g.selected...)
}

func (g *Grid) ResetSelection() {
	g.mu.Lock()
	g.selected = nil
	g.mu.Unlock()
}

// PostSelected posts the element ids of the selected rows to the grid's
// post button url.
func (g *Grid) PostSelected() error {
	g.mu.Lock()
	if g.cfg.PostButtonURL == "" {
		g.mu.Unlock()
		return ErrNoPostTarget
	}
	ids := make([]string, 0, len(g.selected))
	for _, r := range g.selected {
		ids = append(ids, r.ElemID())
	}
	req := Request{
		Path:    g.cfg.PostButtonURL,
		Method:  http.MethodPost,
		Payload: map[string]interface{}{g.cfg.PostButtonTargetPath: ids},
	}
	g.mu.Unlock()
	g.dispatch(req)
	return nil
}

// PostOnChange sends the new checkbox state of a cell
func (g *Grid) PostOnChange(code string, row Row, checked bool) {
	g.dispatch(Request{
		Path:    g.cfg.Path + "/" + row.ElemID() + "/" + code,
		Action:  "state",
		Method:  http.MethodPost,
		Payload: map[string]interface{}{"state": checked},
	})
}

// Close releases the debounce timer and subscriptions and waits for
// in-flight dispatches. Later calls are no-ops.
func (g *Grid) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	unsubs := g.unsubs
	g.unsubs = nil
	g.mu.Unlock()

	g.debounce.Stop()
	for _, cancel := range unsubs {
		if cancel != nil {
			cancel()
		}
	}
	if g.cancel != nil {
		g.cancel()
	}
	g.wg.Wait()
}
