package graphdb

import (
	"fmt"

	"github.com/dot-do/neo4j-sub002/internal/apperrors"
	"github.com/dot-do/neo4j-sub002/internal/engine"
)

// Record is one row of a Result, addressable by column name or index.
type Record struct {
	Keys   []string
	Values []engine.Value
}

// Get returns the value for a column by name and whether it was present.
func (r *Record) Get(key string) (engine.Value, bool) {
	for i, k := range r.Keys {
		if k == key {
			return r.Values[i], true
		}
	}
	return engine.Value{}, false
}

// ResultSummary reports what a completed query did, mirroring the Neo4j
// driver's ResultSummary, including the write counters a CREATE clause
// accumulated.
type ResultSummary struct {
	Query       string
	Parameters  map[string]any
	RecordCount int
	Counters    engine.Counters
}

// Result streams the rows produced by Session.Run or Transaction.Run. It
// holds the full row set already computed by internal/engine — there is no
// server-side cursor — but exposes the same Next/Record/Collect/Single
// surface as the real driver so calling code doesn't need to know that.
type Result struct {
	keys     []string
	rows     [][]engine.Value
	counters engine.Counters
	pos      int
	started  bool
	query    string
	params   map[string]any
}

func newResult(query string, params map[string]any, r *engine.Result) *Result {
	return &Result{keys: r.Columns, rows: r.Rows, counters: r.Counters, pos: -1, query: query, params: params}
}

// Keys returns the result's column names.
func (res *Result) Keys() ([]string, error) {
	return res.keys, nil
}

// Next advances to the next record, returning false when exhausted.
func (res *Result) Next() bool {
	if res.pos+1 >= len(res.rows) {
		res.pos = len(res.rows)
		return false
	}
	res.pos++
	return true
}

// Record returns the current record, or nil if Next has not been called or
// returned false.
func (res *Result) Record() *Record {
	if res.pos < 0 || res.pos >= len(res.rows) {
		return nil
	}
	return &Record{Keys: res.keys, Values: res.rows[res.pos]}
}

// Peek reports whether a further record is available without consuming it.
func (res *Result) Peek() bool {
	return res.pos+1 < len(res.rows)
}

// Collect drains the remaining records into a slice.
func (res *Result) Collect() ([]*Record, error) {
	var out []*Record
	for res.Next() {
		out = append(out, res.Record())
	}
	return out, nil
}

// Single returns the sole remaining record, erroring if there is not
// exactly one.
func (res *Result) Single() (*Record, error) {
	if !res.Next() {
		return nil, apperrors.NewSemanticError("result contains no records")
	}
	rec := res.Record()
	if res.Next() {
		return nil, apperrors.NewSemanticError("result contains more than one record")
	}
	return rec, nil
}

// Consume discards any remaining records and returns the summary.
func (res *Result) Consume() (ResultSummary, error) {
	for res.Next() {
	}
	return ResultSummary{Query: res.query, Parameters: res.params, RecordCount: len(res.rows), Counters: res.counters}, nil
}

func (res *Result) String() string {
	return fmt.Sprintf("Result{columns=%v, rows=%d}", res.keys, len(res.rows))
}
