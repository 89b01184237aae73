package cursorpool

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CursorState is one grid's open scroll cursor
type CursorState struct {
	SessionID  string
	CursorName string
	Query      string
	Args       []interface{}
	Conn       *sql.Conn
	Tx         *sql.Tx
	CreatedAt  time.Time
	LastUsed   time.Time
	sync.Mutex
}

// Pool keeps a scroll cursor per grid session so page moves reuse the
// same server-side result set.
type Pool struct {
	db          *sql.DB
	cursors     map[string]*CursorState
	mu          sync.Mutex
	idleTimeout time.Duration
	absTimeout  time.Duration
	maxCursors  int
	cleanupStop chan struct{}
	stopOnce    sync.Once
	log         *slog.Logger
}

// NewPool starts a cursor pool on db. Cursors idle for longer than
// idleTimeout, or older than absTimeout, are closed in the background.
func NewPool(db *sql.DB, maxCursors int, idleTimeout, absTimeout time.Duration, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		db:          db,
		cursors:     make(map[string]*CursorState),
		idleTimeout: idleTimeout,
		absTimeout:  absTimeout,
		maxCursors:  maxCursors,
		cleanupStop: make(chan struct{}),
		log:         logger,
	}
	p.startCleanupRoutine(30 * time.Second)
	return p
}

// Close stops the cleanup routine and closes every open cursor. The
// underlying *sql.DB is left open.
func (p *Pool) Close() {
	p.stopOnce.Do(func() { close(p.cleanupStop) })

	p.mu.Lock()
	defer p.mu.Unlock()
	for sid, state := range p.cursors {
		state.Lock()
		p.removeCursor(sid, state)
		state.Unlock()
	}
}

func (p *Pool) startCleanupRoutine(every time.Duration) {
	ticker := time.NewTicker(every)
	go func() {
		for {
			select {
			case <-ticker.C:
				p.cleanupTimeouts(time.Now())
			case <-p.cleanupStop:
				ticker.Stop()
				return
			}
		}
	}()
}

func (p *Pool) cleanupTimeouts(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for sid, state := range p.cursors {
		state.Lock()
		if p.expired(state, now) {
			p.log.Info("Cleaning up expired cursor", "session", sid, "cursorname", state.CursorName)
			p.removeCursor(sid, state)
		}
		state.Unlock()
	}
}

func (p *Pool) expired(state *CursorState, now time.Time) bool {
	if p.absTimeout > 0 && now.Sub(state.CreatedAt) > p.absTimeout {
		return true
	}
	return p.idleTimeout > 0 && now.Sub(state.LastUsed) > p.idleTimeout
}

func (p *Pool) removeCursor(sid string, state *CursorState) {
	if state.Tx != nil {
		state.Tx.Rollback()
	}
	if state.Conn != nil {
		state.Conn.Close()
	}
	delete(p.cursors, sid)
}

// Len returns the number of open cursors
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cursors)
}

func sameArgs(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if fmt.Sprint(a[i]) != fmt.Sprint(b[i]) {
			return false
		}
	}
	return true
}

// Open returns the session's cursor for query, declaring a new one when the
// session has none or its query or arguments changed.
func (p *Pool) Open(ctx context.Context, sid, query string, args ...interface{}) (*CursorState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state, exists := p.cursors[sid]; exists {
		state.Lock()
		if state.Query == query && sameArgs(state.Args, args) {
			state.LastUsed = time.Now()
			state.Unlock()
			return state, nil
		}
		p.log.Debug("Query changed, redeclaring cursor", "session", sid, "cursorname", state.CursorName)
		p.removeCursor(sid, state)
		state.Unlock()
	}

	if p.maxCursors > 0 && len(p.cursors) >= p.maxCursors {
		return nil, fmt.Errorf("cursor pool capacity reached (max %d)", p.maxCursors)
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	cursorName := "cur_" + uuid.New().String()[:8]
	declareSQL := fmt.Sprintf("DECLARE %s SCROLL CURSOR FOR %s", cursorName, query)

	if _, err := tx.ExecContext(ctx, declareSQL, args...); err != nil {
		tx.Rollback()
		conn.Close()
		return nil, fmt.Errorf("failed to declare cursor: %w", err)
	}

	now := time.Now()
	state := &CursorState{
		SessionID:  sid,
		CursorName: cursorName,
		Query:      query,
		Args:       args,
		Conn:       conn,
		Tx:         tx,
		CreatedAt:  now,
		LastUsed:   now,
	}
	p.cursors[sid] = state
	return state, nil
}

// BuildMoveQuery positions the cursor just before row offset
func BuildMoveQuery(cursorName string, offset int) string {
	return fmt.Sprintf("MOVE ABSOLUTE %d FROM \"%s\"", offset, cursorName)
}

// BuildFetchQuery reads the next count rows from the cursor
func BuildFetchQuery(cursorName string, count int) string {
	return fmt.Sprintf("FETCH FORWARD %d FROM \"%s\"", count, cursorName)
}

// FetchPage reads count rows starting at offset from the session's cursor
func (p *Pool) FetchPage(ctx context.Context, sid string, offset, count int) ([]map[string]interface{}, error) {
	p.mu.Lock()
	state, ok := p.cursors[sid]
	p.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no active cursor for session %s", sid)
	}

	state.Lock()
	defer state.Unlock()
	state.LastUsed = time.Now()

	if _, err := state.Tx.ExecContext(ctx, BuildMoveQuery(state.CursorName, offset)); err != nil {
		return nil, fmt.Errorf("move failed: %w", err)
	}
	rows, err := state.Tx.QueryContext(ctx, BuildFetchQuery(state.CursorName, count))
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer rows.Close()

	return ScanRows(rows)
}

// ScanRows reads every row into a column-keyed map. []byte values become strings.
func ScanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		pointers := make([]interface{}, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range cols {
			val := values[i]
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
