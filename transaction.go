package graphdb

import (
	"context"
	"sync/atomic"

	"github.com/dot-do/neo4j-sub002/internal/apperrors"
	"github.com/dot-do/neo4j-sub002/internal/engine"
)

// Transaction is an explicit, caller-managed unit of work. Queries run
// against a Transaction see the committed store overlaid with the
// transaction's own uncommitted writes (internal/txn's work-buffer
// isolation) and are invisible to every other Session until Commit.
type Transaction struct {
	session *Session
	txID    string
	done    atomic.Bool
}

func newTransaction(s *Session, txID string) *Transaction {
	return &Transaction{session: s, txID: txID}
}

// ID returns the opaque identifier the HTTP surface exposes as
// X-Transaction-Id, so a client can interleave multiple HTTP requests
// against the same transaction.
func (tx *Transaction) ID() string { return tx.txID }

// Run parses and executes a Cypher statement (or semicolon-separated
// sequence of statements) against this transaction's view, returning the
// Result of the final statement.
func (tx *Transaction) Run(ctx context.Context, cypherText string, params map[string]any) (*Result, error) {
	if tx.done.Load() {
		return nil, &apperrors.TransactionStateError{TransactionID: tx.txID, State: "closed"}
	}
	view, err := tx.session.driver.txnMgr.View(tx.txID)
	if err != nil {
		return nil, err
	}
	return runStatements(ctx, view, cypherText, params)
}

// Commit flushes the transaction's buffered writes to the store.
func (tx *Transaction) Commit(ctx context.Context) error {
	if !tx.done.CompareAndSwap(false, true) {
		return apperrors.ErrNoOpenTransaction
	}
	return tx.session.driver.txnMgr.Commit(ctx, tx.txID)
}

// Rollback discards the transaction's buffered writes.
func (tx *Transaction) Rollback(ctx context.Context) error {
	if !tx.done.CompareAndSwap(false, true) {
		return apperrors.ErrNoOpenTransaction
	}
	return tx.session.driver.txnMgr.Rollback(tx.txID)
}

// Close rolls back the transaction if it has not already been committed or
// rolled back, per the Neo4j driver's defer-Close idiom.
func (tx *Transaction) Close(ctx context.Context) error {
	if tx.done.Load() {
		return nil
	}
	return tx.Rollback(ctx)
}

// IsOpen reports whether the transaction is still active.
func (tx *Transaction) IsOpen() bool {
	return !tx.done.Load() && tx.session.driver.txnMgr.IsActive(tx.txID)
}

// runStatements splits body on top-level semicolons, executes each parsed
// statement in order against view, and returns the last statement's Result.
// This lets a caller submit "CREATE (...); MATCH (...) RETURN ..." as one
// string, as the HTTP /cypher endpoint and Session.Run both accept.
func runStatements(ctx context.Context, view engine.GraphView, body string, params map[string]any) (*Result, error) {
	stmts := splitStatements(body)
	if len(stmts) == 0 {
		return newResult(body, params, &engine.Result{}), nil
	}
	var last *engine.Result
	for _, stmt := range stmts {
		q, err := parseCypher(stmt)
		if err != nil {
			return nil, err
		}
		r, err := engine.Execute(ctx, view, q, params)
		if err != nil {
			return nil, err
		}
		last = r
	}
	return newResult(body, params, last), nil
}
