package txn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dot-do/neo4j-sub002/internal/apperrors"
	"github.com/dot-do/neo4j-sub002/internal/engine"
	"github.com/dot-do/neo4j-sub002/internal/store"
)

// State is the lifecycle state of a transaction record.
type State string

const (
	StateOpen       State = "open"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
	StateExpired    State = "expired"
)

type record struct {
	id         string
	state      State
	createdAt  time.Time
	lastUsedAt time.Time
	timeout    time.Duration
	buf        *workBuffer
}

func (r *record) expired(asOf time.Time) bool {
	return asOf.Sub(r.lastUsedAt) > r.timeout
}

// Manager owns every open transaction's work buffer and the lazy-expiry
// bookkeeping described in spec §4.5. Expiry is checked on access rather
// than by a background sweep: a transaction past its timeout transitions to
// StateExpired the next time anything touches it.
type Manager struct {
	mu             sync.Mutex
	store          *store.Store
	log            *zap.SugaredLogger
	defaultTimeout time.Duration
	records        map[string]*record
}

// NewManager constructs a Manager bound to s, defaulting idle transactions
// to expire after defaultTimeout.
func NewManager(s *store.Store, log *zap.SugaredLogger, defaultTimeout time.Duration) *Manager {
	return &Manager{
		store:          s,
		log:            log,
		defaultTimeout: defaultTimeout,
		records:        make(map[string]*record),
	}
}

// Begin opens a new transaction and returns its id.
func (m *Manager) Begin(ctx context.Context) (string, error) {
	id := uuid.NewString()
	now := time.Now()
	m.mu.Lock()
	m.records[id] = &record{
		id:         id,
		state:      StateOpen,
		createdAt:  now,
		lastUsedAt: now,
		timeout:    m.defaultTimeout,
		buf:        newWorkBuffer(),
	}
	m.mu.Unlock()
	if m.log != nil {
		m.log.Debugw("transaction opened", "tx_id", id)
	}
	return id, nil
}

// View returns the GraphView a query against this transaction should run
// against, touching the record's lastUsedAt (keeping it alive) first.
func (m *Manager) View(txID string) (engine.GraphView, error) {
	r, err := m.touch(txID)
	if err != nil {
		return nil, err
	}
	return newTxView(m.store, r.buf), nil
}

// touch validates the transaction is open, lazily expiring it if its
// timeout has elapsed, and otherwise refreshes lastUsedAt.
func (m *Manager) touch(txID string) (*record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[txID]
	if !ok {
		return nil, apperrors.ErrTransactionNotFound
	}
	if r.state != StateOpen {
		return nil, &apperrors.TransactionStateError{TransactionID: txID, State: string(r.state)}
	}
	if r.expired(time.Now()) {
		r.state = StateExpired
		return nil, apperrors.ErrTransactionExpired
	}
	r.lastUsedAt = time.Now()
	return r, nil
}

// Commit flushes the transaction's buffered writes to the store in a fixed
// order — created nodes, then created relationships, then relationship
// deletions, then node deletions — so that every flushed relationship's
// endpoints already exist and no node is removed before its incident
// relationships are gone.
func (m *Manager) Commit(ctx context.Context, txID string) error {
	r, err := m.touch(txID)
	if err != nil {
		return err
	}

	for _, id := range r.buf.nodeOrder {
		if r.buf.deletedNodeIDs[id] {
			continue
		}
		n := r.buf.nodes[id]
		t := time.Now()
		if err := m.store.InsertNode(ctx, store.NodeRow{ID: n.ID, Labels: n.Labels, Properties: n.Properties, CreatedAt: t, UpdatedAt: t}); err != nil {
			return fmt.Errorf("txn: commit node %d: %w", id, err)
		}
	}
	for _, id := range r.buf.relOrder {
		if r.buf.deletedRelIDs[id] {
			continue
		}
		rel := r.buf.relationships[id]
		if err := m.store.InsertRelationship(ctx, store.RelationshipRow{ID: rel.ID, Type: rel.Type, StartNodeID: rel.StartNodeID, EndNodeID: rel.EndNodeID, Properties: rel.Properties, CreatedAt: time.Now()}); err != nil {
			return fmt.Errorf("txn: commit relationship %d: %w", id, err)
		}
	}
	for id := range r.buf.deletedRelIDs {
		if err := m.store.DeleteRelationship(ctx, id); err != nil {
			return fmt.Errorf("txn: commit relationship deletion %d: %w", id, err)
		}
	}
	for id := range r.buf.deletedNodeIDs {
		if err := m.store.DeleteNode(ctx, id); err != nil {
			return fmt.Errorf("txn: commit node deletion %d: %w", id, err)
		}
	}

	m.mu.Lock()
	r.state = StateCommitted
	delete(m.records, txID)
	m.mu.Unlock()
	if m.log != nil {
		m.log.Debugw("transaction committed", "tx_id", txID)
	}
	return nil
}

// Rollback discards the transaction's work buffer without touching the
// store.
func (m *Manager) Rollback(txID string) error {
	_, err := m.touch(txID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	r := m.records[txID]
	r.state = StateRolledBack
	delete(m.records, txID)
	m.mu.Unlock()
	if m.log != nil {
		m.log.Debugw("transaction rolled back", "tx_id", txID)
	}
	return nil
}

// IsActive reports whether txID names a transaction currently open (i.e.
// not committed, rolled back, or lazily expired by this check).
func (m *Manager) IsActive(txID string) bool {
	_, err := m.touch(txID)
	return err == nil
}

// CleanupExpired sweeps every tracked transaction, removing (without
// flushing) any whose timeout has elapsed as of now. It returns the count
// removed. Lazy per-access expiry (touch) is the primary mechanism; this is
// a periodic janitor a long-lived server process can call to reclaim
// memory from transactions nobody ever touches again.
func (m *Manager) CleanupExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, r := range m.records {
		if r.state == StateOpen && r.expired(now) {
			delete(m.records, id)
			removed++
		}
	}
	return removed
}

// OpenCount returns the number of currently tracked open transactions.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.state == StateOpen {
			n++
		}
	}
	return n
}
