// Package httpapi exposes the embedded graph database over a small JSON/HTTP
// surface: health checks, ad-hoc Cypher execution, explicit transaction
// control, and node lookup by id.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	graphdb "github.com/dot-do/neo4j-sub002"
	"github.com/dot-do/neo4j-sub002/internal/apperrors"
	"github.com/dot-do/neo4j-sub002/internal/engine"
)

// Server wraps a graphdb.Driver with an http.Handler.
type Server struct {
	driver *graphdb.Driver
	log    *zap.SugaredLogger

	mu   sync.Mutex
	txs  map[string]*graphdb.Transaction
	sess map[string]*graphdb.Session
}

// NewServer builds a Server bound to driver.
func NewServer(driver *graphdb.Driver, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		driver: driver,
		log:    log.Named("httpapi"),
		txs:    make(map[string]*graphdb.Transaction),
		sess:   make(map[string]*graphdb.Session),
	}
}

// Handler builds the routed http.Handler. Go 1.22+ ServeMux method-prefixed
// patterns select on verb and path without a third-party router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /cypher", s.handleCypher)
	mux.HandleFunc("POST /transaction/begin", s.handleBegin)
	mux.HandleFunc("POST /transaction/commit", s.handleCommit)
	mux.HandleFunc("POST /transaction/rollback", s.handleRollback)
	mux.HandleFunc("GET /node/{id}", s.handleGetNode)
	return s.withLogging(mux)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debugw("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

type healthResponse struct {
	Status            string `json:"status"`
	Initialized       bool   `json:"initialized"`
	SchemaVersion     int    `json:"schemaVersion"`
	NodeCount         int64  `json:"nodeCount"`
	RelationshipCount int64  `json:"relationshipCount"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.driver.VerifyConnectivity(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	version, err := s.driver.SchemaVersion(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	nodeCount, err := s.driver.NodeCount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	relCount, err := s.driver.RelationshipCount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:            "ok",
		Initialized:       true,
		SchemaVersion:     version,
		NodeCount:         nodeCount,
		RelationshipCount: relCount,
	})
}

type cypherRequest struct {
	Query      string         `json:"query"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type countersResponse struct {
	NodesCreated         int `json:"nodesCreated"`
	RelationshipsCreated int `json:"relationshipsCreated"`
	LabelsAdded          int `json:"labelsAdded"`
	PropertiesSet        int `json:"propertiesSet"`
}

type summaryResponse struct {
	Counters countersResponse `json:"counters"`
}

type cypherResponse struct {
	Records   []map[string]any `json:"records"`
	Keys      []string         `json:"keys"`
	Summary   summaryResponse  `json:"summary"`
	Bookmarks []string         `json:"bookmarks,omitempty"`
}

// handleCypher runs one (optionally semicolon-separated) Cypher body. If the
// request carries X-Transaction-Id, it runs against that open transaction's
// view instead of auto-commit.
func (s *Server) handleCypher(w http.ResponseWriter, r *http.Request) {
	var req cypherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.NewInvalidRequestError("Invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, apperrors.NewSyntaxError("Query cannot be empty"))
		return
	}

	txID := r.Header.Get("X-Transaction-Id")
	var result *graphdb.Result
	var err error
	var bookmarks []string
	if txID != "" {
		tx, ok := s.lookupTx(txID)
		if !ok {
			writeError(w, http.StatusBadRequest, apperrors.NewInvalidRequestError("Invalid transaction ID %q", txID))
			return
		}
		result, err = tx.Run(r.Context(), req.Query, req.Parameters)
		bookmarks = []string{"graphdb:bookmark:" + txID}
	} else {
		sess, closeSess := s.autocommitSession()
		defer closeSess(r.Context())
		result, err = sess.Run(r.Context(), req.Query, req.Parameters)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, toCypherResponse(result, bookmarks))
}

func toCypherResponse(result *graphdb.Result, bookmarks []string) cypherResponse {
	keys, _ := result.Keys()
	resp := cypherResponse{Keys: keys, Records: make([]map[string]any, 0)}
	records, _ := result.Collect()
	for _, rec := range records {
		row := make(map[string]any, len(rec.Keys))
		for i, k := range rec.Keys {
			row[k] = engine.ToAny(rec.Values[i])
		}
		resp.Records = append(resp.Records, row)
	}
	summary, _ := result.Consume()
	resp.Summary = summaryResponse{Counters: countersResponse{
		NodesCreated:         summary.Counters.NodesCreated,
		RelationshipsCreated: summary.Counters.RelationshipsCreated,
		LabelsAdded:          summary.Counters.LabelsAdded,
		PropertiesSet:        summary.Counters.PropertiesSet,
	}}
	resp.Bookmarks = bookmarks
	return resp
}

type beginResponse struct {
	TransactionID string `json:"transactionId"`
}

func (s *Server) handleBegin(w http.ResponseWriter, r *http.Request) {
	sess, err := s.driver.NewSession(r.Context(), graphdb.SessionConfig{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	tx, err := sess.BeginTransaction(r.Context())
	if err != nil {
		_ = sess.Close(r.Context())
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.mu.Lock()
	s.txs[tx.ID()] = tx
	s.sess[tx.ID()] = sess
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, beginResponse{TransactionID: tx.ID()})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	s.endTransaction(w, r, func(tx *graphdb.Transaction, ctx context.Context) error { return tx.Commit(ctx) })
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	s.endTransaction(w, r, func(tx *graphdb.Transaction, ctx context.Context) error { return tx.Rollback(ctx) })
}

type transactionIDRequest struct {
	TransactionID string `json:"transactionId"`
}

func (s *Server) endTransaction(w http.ResponseWriter, r *http.Request, fn func(*graphdb.Transaction, context.Context) error) {
	var req transactionIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.NewInvalidRequestError("Invalid JSON body"))
		return
	}
	if req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, apperrors.NewInvalidRequestError("transactionId is required"))
		return
	}
	tx, ok := s.lookupTx(req.TransactionID)
	if !ok {
		writeError(w, http.StatusBadRequest, apperrors.NewInvalidRequestError("Invalid transaction ID %q", req.TransactionID))
		return
	}
	err := fn(tx, r.Context())
	s.mu.Lock()
	sess := s.sess[req.TransactionID]
	delete(s.txs, req.TransactionID)
	delete(s.sess, req.TransactionID)
	s.mu.Unlock()
	if sess != nil {
		_ = sess.Close(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, apperrors.NewInvalidRequestError("invalid node id %q", idStr))
		return
	}
	sess, closeSess := s.autocommitSession()
	defer closeSess(r.Context())
	result, err := sess.Run(r.Context(), "MATCH (n) WHERE id(n) = $id RETURN n", map[string]any{"id": id})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := result.Single()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.ToAny(rec.Values[0]))
}

func (s *Server) lookupTx(txID string) (*graphdb.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[txID]
	return tx, ok
}

// autocommitSession opens a throwaway Session for a single auto-commit
// request and returns a closer to release it.
func (s *Server) autocommitSession() (*graphdb.Session, func(context.Context)) {
	sess, _ := s.driver.NewSession(context.Background(), graphdb.SessionConfig{})
	return sess, func(ctx context.Context) { _ = sess.Close(ctx) }
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	code, message := apperrors.Describe(err)
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code, Message: message})
}
