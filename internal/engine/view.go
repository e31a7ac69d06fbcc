package engine

import (
	"context"
	"time"
)

// NodeRecord is the engine's in-memory view of a node, independent of
// whether it came from the committed store or an open transaction's work
// buffer.
type NodeRecord struct {
	ID         int64
	Labels     []string
	Properties map[string]any
}

// RelRecord is the engine's in-memory view of a relationship.
type RelRecord struct {
	ID          int64
	Type        string
	StartNodeID int64
	EndNodeID   int64
	Properties  map[string]any
}

// GraphView is the graph the engine executes a query against: either the
// store directly (autocommit) or a transaction's work-buffer overlay on the
// store (§4.5's committed ∪ additions − deletions view). The engine never
// talks to *store.Store or the transaction manager directly — only through
// this seam.
type GraphView interface {
	AllNodes(ctx context.Context) ([]NodeRecord, error)
	AllRelationships(ctx context.Context) ([]RelRecord, error)
	GetNode(ctx context.Context, id int64) (*NodeRecord, error)
	RelationshipsFrom(ctx context.Context, nodeID int64) ([]RelRecord, error)
	RelationshipsTo(ctx context.Context, nodeID int64) ([]RelRecord, error)
	CreateNode(ctx context.Context, labels []string, props map[string]any) (*NodeRecord, error)
	CreateRelationship(ctx context.Context, typ string, startID, endID int64, props map[string]any) (*RelRecord, error)
}

// now is overridable in tests that need deterministic timestamps; production
// code always uses time.Now.
var now = time.Now
