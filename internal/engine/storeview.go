package engine

import (
	"context"

	"github.com/dot-do/neo4j-sub002/internal/store"
)

// StoreView is the autocommit GraphView: every read sees the committed
// store directly and every write commits immediately. Transactional
// execution instead uses the txn package's work-buffer view, which
// implements the same interface over an uncommitted overlay.
type StoreView struct {
	store *store.Store
}

// NewStoreView wraps s for autocommit query execution.
func NewStoreView(s *store.Store) *StoreView {
	return &StoreView{store: s}
}

func (v *StoreView) AllNodes(ctx context.Context) ([]NodeRecord, error) {
	rows, err := v.store.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]NodeRecord, len(rows))
	for i, r := range rows {
		out[i] = NodeRecord{ID: r.ID, Labels: r.Labels, Properties: r.Properties}
	}
	return out, nil
}

func (v *StoreView) AllRelationships(ctx context.Context) ([]RelRecord, error) {
	nodes, err := v.store.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool)
	var out []RelRecord
	for _, n := range nodes {
		rels, err := v.store.RelationshipsByNode(ctx, n.ID, "start")
		if err != nil {
			return nil, err
		}
		for _, r := range rels {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, RelRecord{ID: r.ID, Type: r.Type, StartNodeID: r.StartNodeID, EndNodeID: r.EndNodeID, Properties: r.Properties})
		}
	}
	return out, nil
}

func (v *StoreView) GetNode(ctx context.Context, id int64) (*NodeRecord, error) {
	row, err := v.store.GetNode(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	return &NodeRecord{ID: row.ID, Labels: row.Labels, Properties: row.Properties}, nil
}

func (v *StoreView) RelationshipsFrom(ctx context.Context, nodeID int64) ([]RelRecord, error) {
	rows, err := v.store.RelationshipsByNode(ctx, nodeID, "start")
	if err != nil {
		return nil, err
	}
	return toRelRecords(rows), nil
}

func (v *StoreView) RelationshipsTo(ctx context.Context, nodeID int64) ([]RelRecord, error) {
	rows, err := v.store.RelationshipsByNode(ctx, nodeID, "end")
	if err != nil {
		return nil, err
	}
	return toRelRecords(rows), nil
}

func toRelRecords(rows []store.RelationshipRow) []RelRecord {
	out := make([]RelRecord, len(rows))
	for i, r := range rows {
		out[i] = RelRecord{ID: r.ID, Type: r.Type, StartNodeID: r.StartNodeID, EndNodeID: r.EndNodeID, Properties: r.Properties}
	}
	return out
}

func (v *StoreView) CreateNode(ctx context.Context, labels []string, props map[string]any) (*NodeRecord, error) {
	id := v.store.NextNodeID()
	t := now()
	if err := v.store.InsertNode(ctx, store.NodeRow{ID: id, Labels: labels, Properties: props, CreatedAt: t, UpdatedAt: t}); err != nil {
		return nil, err
	}
	return &NodeRecord{ID: id, Labels: labels, Properties: props}, nil
}

func (v *StoreView) CreateRelationship(ctx context.Context, typ string, startID, endID int64, props map[string]any) (*RelRecord, error) {
	id := v.store.NextRelationshipID()
	if err := v.store.InsertRelationship(ctx, store.RelationshipRow{ID: id, Type: typ, StartNodeID: startID, EndNodeID: endID, Properties: props, CreatedAt: now()}); err != nil {
		return nil, err
	}
	return &RelRecord{ID: id, Type: typ, StartNodeID: startID, EndNodeID: endID, Properties: props}, nil
}
