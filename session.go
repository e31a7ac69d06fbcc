package graphdb

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dot-do/neo4j-sub002/cypher"
	"github.com/dot-do/neo4j-sub002/internal/apperrors"
	"github.com/dot-do/neo4j-sub002/internal/engine"
)

// AccessMode selects whether a transaction function is routed as a read or
// a write, kept for API-contract compatibility with the Neo4j driver; the
// embedded engine does not route reads/writes to different replicas.
type AccessMode int

const (
	AccessModeWrite AccessMode = iota
	AccessModeRead
)

// SessionConfig configures a Session at creation time.
type SessionConfig struct {
	AccessMode   AccessMode
	Bookmarks    []string
	DatabaseName string
}

// Session is a logical connection scope: at most one Transaction open at a
// time, auto-commit Run calls outside of one, and bookmark bookkeeping
// across the calls made through it.
type Session struct {
	driver *Driver
	config SessionConfig

	mu        sync.Mutex
	bookmarks []string
	txID      string // non-empty while a transaction is open
	closed    atomic.Bool
}

func newSession(d *Driver, config SessionConfig) *Session {
	return &Session{driver: d, config: config, bookmarks: append([]string{}, config.Bookmarks...)}
}

// Run executes cypherText in auto-commit mode (no explicit transaction),
// going straight to the store via a StoreView.
func (s *Session) Run(ctx context.Context, cypherText string, params map[string]any) (*Result, error) {
	if s.closed.Load() {
		return nil, apperrors.ErrSessionClosed
	}
	view := engine.NewStoreView(s.driver.store)
	return runStatements(ctx, view, cypherText, params)
}

// BeginTransaction opens an explicit Transaction on this session. Only one
// may be open at a time per session.
func (s *Session) BeginTransaction(ctx context.Context) (*Transaction, error) {
	if s.closed.Load() {
		return nil, apperrors.ErrSessionClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txID != "" && s.driver.txnMgr.IsActive(s.txID) {
		return nil, apperrors.ErrTransactionOpen
	}
	txID, err := s.driver.txnMgr.Begin(ctx)
	if err != nil {
		return nil, err
	}
	s.txID = txID
	return newTransaction(s, txID), nil
}

// TransactionFunc is the unit of work passed to ExecuteRead/ExecuteWrite.
type TransactionFunc func(tx *Transaction) (any, error)

// ExecuteWrite runs fn inside a transaction, retrying on transient errors
// per the Driver's MaxTransactionRetryTime, committing on success and
// rolling back on any error.
func (s *Session) ExecuteWrite(ctx context.Context, fn TransactionFunc) (any, error) {
	return s.executeTransactionFunc(ctx, fn)
}

// ExecuteRead is ExecuteWrite's read-mode counterpart; routing is identical
// since there is only one embedded store, but the method exists so code
// written against the Neo4j driver needs no changes to compile here.
func (s *Session) ExecuteRead(ctx context.Context, fn TransactionFunc) (any, error) {
	return s.executeTransactionFunc(ctx, fn)
}

func (s *Session) executeTransactionFunc(ctx context.Context, fn TransactionFunc) (any, error) {
	if s.closed.Load() {
		return nil, apperrors.ErrSessionClosed
	}
	return retryTransaction(ctx, s.driver.config.MaxTransactionRetryTime, func(ctx context.Context) (any, error) {
		tx, err := s.BeginTransaction(ctx)
		if err != nil {
			return nil, err
		}
		result, err := fn(tx)
		if err != nil {
			_ = tx.Rollback(ctx)
			s.clearTx()
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			s.clearTx()
			return nil, err
		}
		s.clearTx()
		s.recordBookmark(tx.txID)
		return result, nil
	})
}

func (s *Session) clearTx() {
	s.mu.Lock()
	s.txID = ""
	s.mu.Unlock()
}

func (s *Session) recordBookmark(txID string) {
	s.mu.Lock()
	s.bookmarks = append(s.bookmarks, "graphdb:bookmark:"+txID)
	s.mu.Unlock()
}

// LastBookmarks returns the bookmarks recorded by ExecuteRead/ExecuteWrite
// on this session, one per committed transaction function, in commit order.
// Committing a Transaction obtained from BeginTransaction records no
// bookmark. Bookmarks are opaque tokens: the
// embedded engine gives every caller immediate read-your-writes visibility,
// so they are round-tripped for API compatibility rather than used to wait
// for replication.
func (s *Session) LastBookmarks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.bookmarks...)
}

// Close ends the session, rolling back any transaction left open on it.
func (s *Session) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	txID := s.txID
	s.txID = ""
	s.mu.Unlock()
	if txID != "" {
		_ = s.driver.txnMgr.Rollback(txID)
	}
	s.driver.sessionClosed()
	return nil
}

// parseCypher parses one Cypher statement.
func parseCypher(stmt string) (*cypher.Query, error) {
	return cypher.Parse(stmt)
}

// splitStatements splits body on top-level semicolons (not inside a quoted
// string or backtick-delimited identifier), trimming whitespace and
// dropping empty statements, so a caller can submit
// "CREATE (a:Person); MATCH (a:Person) RETURN a" as one string.
func splitStatements(body string) []string {
	var stmts []string
	var cur strings.Builder
	var inString rune
	for _, r := range body {
		switch {
		case inString != 0:
			cur.WriteRune(r)
			if r == inString {
				inString = 0
			}
		case r == '\'' || r == '"' || r == '`':
			inString = r
			cur.WriteRune(r)
		case r == ';':
			if s := strings.TrimSpace(cur.String()); s != "" {
				stmts = append(stmts, s)
			}
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}
