// Package graphdb is an embedded, Neo4j-driver-shaped client for the Cypher
// graph database implemented in this module. There is no Bolt wire protocol:
// Driver opens a local row store directly and Session/Transaction/Result
// execute queries in-process against internal/engine.
package graphdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dot-do/neo4j-sub002/internal/apperrors"
	"github.com/dot-do/neo4j-sub002/internal/schema"
	"github.com/dot-do/neo4j-sub002/internal/store"
	"github.com/dot-do/neo4j-sub002/internal/txn"
)

// Driver owns the embedded store and the subsystems built on top of it. One
// Driver should be created per process/database file and shared across
// Sessions.
type Driver struct {
	uri    parsedURI
	auth   AuthToken
	config Config
	log    *zap.SugaredLogger

	store     *store.Store
	schemaMgr *schema.Manager
	txnMgr    *txn.Manager

	mu             sync.Mutex
	activeSessions int
	closed         atomic.Bool
}

// NewDriver parses uri, opens (creating if necessary) the embedded database
// it names, brings its schema up to date, and returns a ready-to-use Driver.
// auth is accepted and stored for contract compatibility but is not checked
// against any external identity provider.
func NewDriver(uri string, auth AuthToken, configurers ...Configurer) (*Driver, error) {
	return NewDriverWithContext(context.Background(), uri, auth, zap.NewNop().Sugar(), configurers...)
}

// NewDriverWithContext is NewDriver with an explicit context (used while
// opening the store) and logger.
func NewDriverWithContext(ctx context.Context, uri string, auth AuthToken, log *zap.SugaredLogger, configurers ...Configurer) (*Driver, error) {
	parsed, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	for _, c := range configurers {
		c(&cfg)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log = log.Named("graphdb")

	s, err := store.Open(ctx, parsed.Target, log.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("graphdb: open store: %w", err)
	}

	mgr, err := schema.NewManager(s.DB(), log.Named("schema"), schema.DefaultMigrations())
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("graphdb: build schema manager: %w", err)
	}
	if _, err := mgr.RunMigrations(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("graphdb: run migrations: %w", err)
	}
	if err := s.SeedIDGenerators(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("graphdb: seed id generators: %w", err)
	}

	txnMgr := txn.NewManager(s, log.Named("txn"), cfg.TransactionTimeout)

	d := &Driver{
		uri:       parsed,
		auth:      auth,
		config:    cfg,
		log:       log,
		store:     s,
		schemaMgr: mgr,
		txnMgr:    txnMgr,
	}
	log.Infow("driver opened", "target", parsed.Target, "scheme", parsed.Scheme)
	return d, nil
}

// VerifyConnectivity confirms the embedded store is reachable by pinging it.
func (d *Driver) VerifyConnectivity(ctx context.Context) error {
	if d.closed.Load() {
		return apperrors.ErrDriverClosed
	}
	return d.store.DB().PingContext(ctx)
}

// VerifyAuthentication reports whether auth is acceptable. The embedded
// engine has no external identity provider, so any non-empty scheme is
// accepted and only an empty scheme is not; this exists for API-contract
// compatibility with code written against the Neo4j driver.
func (d *Driver) VerifyAuthentication(ctx context.Context) (bool, error) {
	if d.closed.Load() {
		return false, apperrors.ErrDriverClosed
	}
	return d.auth.Scheme != "", nil
}

// GetServerInfo describes the embedded database this Driver is attached to.
func (d *Driver) GetServerInfo(ctx context.Context) (ServerInfo, error) {
	if d.closed.Load() {
		return ServerInfo{}, apperrors.ErrDriverClosed
	}
	return ServerInfo{Address: d.uri.Target, Agent: serverAgent, ProtocolVersion: "embedded-1.0"}, nil
}

// NewSession opens a new Session bound to this Driver.
func (d *Driver) NewSession(ctx context.Context, config SessionConfig) (*Session, error) {
	if d.closed.Load() {
		return nil, apperrors.ErrDriverClosed
	}
	d.mu.Lock()
	d.activeSessions++
	d.mu.Unlock()
	return newSession(d, config), nil
}

// Close shuts down the Driver and releases the underlying store handle.
// Any Sessions still open at the time of Close become unusable.
func (d *Driver) Close(ctx context.Context) error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.log.Infow("driver closing")
	return d.store.Close()
}

// SchemaVersion returns the currently applied schema version.
func (d *Driver) SchemaVersion(ctx context.Context) (int, error) {
	return d.schemaMgr.GetCurrentVersion(ctx)
}

// NodeCount returns the number of nodes currently in the store.
func (d *Driver) NodeCount(ctx context.Context) (int64, error) {
	if d.closed.Load() {
		return 0, apperrors.ErrDriverClosed
	}
	return d.store.CountNodes(ctx)
}

// RelationshipCount returns the number of relationships currently in the
// store.
func (d *Driver) RelationshipCount(ctx context.Context) (int64, error) {
	if d.closed.Load() {
		return 0, apperrors.ErrDriverClosed
	}
	return d.store.CountRelationships(ctx)
}

// SchemaHistory returns every applied migration, in application order.
func (d *Driver) SchemaHistory(ctx context.Context) ([]schema.HistoryEntry, error) {
	return d.schemaMgr.GetMigrationHistory(ctx)
}

// ValidateSchema checks the store's tables and indexes against what the
// migration set requires.
func (d *Driver) ValidateSchema(ctx context.Context) (schema.ValidationResult, error) {
	return d.schemaMgr.ValidateSchema(ctx)
}

// MigrateSchema applies any pending migrations and returns the count
// applied.
func (d *Driver) MigrateSchema(ctx context.Context) (int, error) {
	return d.schemaMgr.RunMigrations(ctx)
}

// RollbackSchema rolls the schema back to target, applying Down migrations
// in descending order.
func (d *Driver) RollbackSchema(ctx context.Context, target int) error {
	return d.schemaMgr.Rollback(ctx, target)
}

func (d *Driver) sessionClosed() {
	d.mu.Lock()
	d.activeSessions--
	d.mu.Unlock()
}
