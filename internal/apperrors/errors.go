// Package apperrors defines the typed, Neo-style error taxonomy shared by
// the execution engine, transaction manager, driver and HTTP surface.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Code namespaces mirror Neo4j's own error code convention so that clients
// written against the Neo4j driver contract see familiar strings.
const (
	CodeSyntaxError         = "Neo.ClientError.Statement.SyntaxError"
	CodeSemanticError       = "Neo.ClientError.Statement.SemanticError"
	CodeNotImplemented      = "Neo.ClientError.Statement.NotImplemented"
	CodeParameterMissing    = "Neo.ClientError.Statement.ParameterMissing"
	CodeUnknownError        = "Neo.DatabaseError.General.UnknownError"
	CodeTransientConflict   = "Neo.TransientError.Transaction.Conflict"
	CodeInvalidRequest      = "Neo.ClientError.Request.Invalid"
	CodeTransactionNotFound = "Neo.ClientError.Transaction.TransactionNotFound"
)

// CypherError is a typed error carrying a Neo-style code, for errors raised
// while interpreting a parsed query against the store.
type CypherError struct {
	Code    string
	Message string
}

func (e *CypherError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewSyntaxError builds a CypherError for unknown functions, bad arity, or
// lexer/parser failures surfaced to the caller.
func NewSyntaxError(format string, args ...any) *CypherError {
	return &CypherError{Code: CodeSyntaxError, Message: fmt.Sprintf(format, args...)}
}

// NewSemanticError builds a CypherError for undefined variables or missing
// relationship endpoints.
func NewSemanticError(format string, args ...any) *CypherError {
	return &CypherError{Code: CodeSemanticError, Message: fmt.Sprintf(format, args...)}
}

// NewNotImplementedError builds a CypherError for unsupported clauses or
// expression types.
func NewNotImplementedError(format string, args ...any) *CypherError {
	return &CypherError{Code: CodeNotImplemented, Message: fmt.Sprintf(format, args...)}
}

// NewParameterMissingError builds a CypherError for a referenced $name that
// was not supplied.
func NewParameterMissingError(name string) *CypherError {
	return &CypherError{Code: CodeParameterMissing, Message: fmt.Sprintf("parameter %q was not provided", name)}
}

// NewInvalidRequestError builds a CypherError for a malformed HTTP request
// (bad JSON body, empty query, unknown transaction id) rather than a Cypher
// statement problem.
func NewInvalidRequestError(format string, args ...any) *CypherError {
	return &CypherError{Code: CodeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// Sentinel errors for transaction/session/driver lifecycle conditions. These
// carry no Neo-style code because the spec does not assign them one (§7).
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionExpired  = errors.New("transaction has expired")
	ErrDriverClosed        = errors.New("driver is closed")
	ErrSessionClosed       = errors.New("session is closed")
	ErrTransactionOpen     = errors.New("a transaction is already open on this session")
	ErrNoOpenTransaction   = errors.New("no open transaction")
)

// TransactionStateError reports an operation attempted against a
// transaction that is no longer active (committed/rolled back/expired).
type TransactionStateError struct {
	TransactionID string
	State         string
}

func (e *TransactionStateError) Error() string {
	return fmt.Sprintf("cannot operate on transaction %s in state %s", e.TransactionID, e.State)
}

// Describe extracts an HTTP-facing (code, message) pair from err: a
// *CypherError's own Code/Message, a recognized sentinel's dedicated code, or
// a generic unknown-error code with the error's own text as the message.
func Describe(err error) (code, message string) {
	var cypherErr *CypherError
	if errors.As(err, &cypherErr) {
		return cypherErr.Code, cypherErr.Message
	}
	if errors.Is(err, ErrTransactionNotFound) || errors.Is(err, ErrTransactionExpired) {
		return CodeTransactionNotFound, err.Error()
	}
	return CodeUnknownError, err.Error()
}

// IsRetryable classifies an error per §4.6/§6: the message contains one of
// a fixed set of substrings (case-insensitive), or it is a CypherError
// whose Code begins with the Neo.TransientError. namespace.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var cypherErr *CypherError
	if errors.As(err, &cypherErr) && strings.HasPrefix(cypherErr.Code, "Neo.TransientError.") {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"deadlock", "transient", "temporarily unavailable", "leader switch", "connection"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
