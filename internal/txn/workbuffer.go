// Package txn implements the transaction manager (L4): per-transaction
// work-buffer isolation over the row store, lazy expiry, and commit/
// rollback flush ordering, per spec §4.5.
package txn

import "github.com/dot-do/neo4j-sub002/internal/engine"

// workBuffer holds everything a transaction has created or deleted but not
// yet committed. Reads against a transaction's GraphView overlay this on
// top of the committed store; nothing here is visible to other
// transactions or to autocommit queries until Commit flushes it.
type workBuffer struct {
	nodes          map[int64]engine.NodeRecord
	relationships  map[int64]engine.RelRecord
	nodeOrder      []int64
	relOrder       []int64
	deletedNodeIDs map[int64]bool
	deletedRelIDs  map[int64]bool
}

func newWorkBuffer() *workBuffer {
	return &workBuffer{
		nodes:          make(map[int64]engine.NodeRecord),
		relationships:  make(map[int64]engine.RelRecord),
		deletedNodeIDs: make(map[int64]bool),
		deletedRelIDs:  make(map[int64]bool),
	}
}
