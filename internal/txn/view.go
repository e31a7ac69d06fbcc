package txn

import (
	"context"

	"github.com/dot-do/neo4j-sub002/internal/engine"
	"github.com/dot-do/neo4j-sub002/internal/store"
)

// txView is the GraphView a transaction's queries run against: the
// committed store overlaid with the transaction's own uncommitted
// additions and deletions (§4.5 "committed ∪ additions − deletions").
// Writes here only ever touch buf; nothing reaches the store until Commit.
type txView struct {
	store *store.Store
	buf   *workBuffer
}

func newTxView(s *store.Store, buf *workBuffer) *txView {
	return &txView{store: s, buf: buf}
}

func (v *txView) AllNodes(ctx context.Context) ([]engine.NodeRecord, error) {
	committed, err := v.store.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	var out []engine.NodeRecord
	for _, n := range committed {
		if v.buf.deletedNodeIDs[n.ID] {
			continue
		}
		out = append(out, engine.NodeRecord{ID: n.ID, Labels: n.Labels, Properties: n.Properties})
	}
	for _, id := range v.buf.nodeOrder {
		if v.buf.deletedNodeIDs[id] {
			continue
		}
		out = append(out, v.buf.nodes[id])
	}
	return out, nil
}

func (v *txView) AllRelationships(ctx context.Context) ([]engine.RelRecord, error) {
	nodes, err := v.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool)
	var out []engine.RelRecord
	for _, n := range nodes {
		rels, err := v.RelationshipsFrom(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		for _, r := range rels {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out, nil
}

func (v *txView) GetNode(ctx context.Context, id int64) (*engine.NodeRecord, error) {
	if v.buf.deletedNodeIDs[id] {
		return nil, nil
	}
	if n, ok := v.buf.nodes[id]; ok {
		n := n
		return &n, nil
	}
	row, err := v.store.GetNode(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	return &engine.NodeRecord{ID: row.ID, Labels: row.Labels, Properties: row.Properties}, nil
}

func (v *txView) RelationshipsFrom(ctx context.Context, nodeID int64) ([]engine.RelRecord, error) {
	committed, err := v.store.RelationshipsByNode(ctx, nodeID, "start")
	if err != nil {
		return nil, err
	}
	var out []engine.RelRecord
	for _, r := range committed {
		if v.buf.deletedRelIDs[r.ID] {
			continue
		}
		out = append(out, engine.RelRecord{ID: r.ID, Type: r.Type, StartNodeID: r.StartNodeID, EndNodeID: r.EndNodeID, Properties: r.Properties})
	}
	for _, id := range v.buf.relOrder {
		if v.buf.deletedRelIDs[id] {
			continue
		}
		r := v.buf.relationships[id]
		if r.StartNodeID == nodeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (v *txView) RelationshipsTo(ctx context.Context, nodeID int64) ([]engine.RelRecord, error) {
	committed, err := v.store.RelationshipsByNode(ctx, nodeID, "end")
	if err != nil {
		return nil, err
	}
	var out []engine.RelRecord
	for _, r := range committed {
		if v.buf.deletedRelIDs[r.ID] {
			continue
		}
		out = append(out, engine.RelRecord{ID: r.ID, Type: r.Type, StartNodeID: r.StartNodeID, EndNodeID: r.EndNodeID, Properties: r.Properties})
	}
	for _, id := range v.buf.relOrder {
		if v.buf.deletedRelIDs[id] {
			continue
		}
		r := v.buf.relationships[id]
		if r.EndNodeID == nodeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (v *txView) CreateNode(ctx context.Context, labels []string, props map[string]any) (*engine.NodeRecord, error) {
	id := v.store.NextNodeID()
	n := engine.NodeRecord{ID: id, Labels: labels, Properties: props}
	v.buf.nodes[id] = n
	v.buf.nodeOrder = append(v.buf.nodeOrder, id)
	return &n, nil
}

func (v *txView) CreateRelationship(ctx context.Context, typ string, startID, endID int64, props map[string]any) (*engine.RelRecord, error) {
	id := v.store.NextRelationshipID()
	r := engine.RelRecord{ID: id, Type: typ, StartNodeID: startID, EndNodeID: endID, Properties: props}
	v.buf.relationships[id] = r
	v.buf.relOrder = append(v.buf.relOrder, id)
	return &r, nil
}

// DeleteNode marks a node deleted within the transaction; it has no effect
// on the committed store until Commit flushes the buffer.
func (v *txView) DeleteNode(id int64) {
	v.buf.deletedNodeIDs[id] = true
}

// DeleteRelationship marks a relationship deleted within the transaction.
func (v *txView) DeleteRelationship(id int64) {
	v.buf.deletedRelIDs[id] = true
}
