package graphdb

import (
	"fmt"
	"strings"
)

// parsedURI is the result of parsing a driver connection URI. The database
// is embedded rather than spoken to over Bolt, so scheme only selects a
// trust policy placeholder for API compatibility with the Neo4j driver
// contract, and the host+path together name the on-disk database file.
type parsedURI struct {
	Scheme     string
	Target     string // filesystem path to the embedded database file
	Encrypted  bool
	TrustAllCerts bool
}

var validSchemes = map[string]struct {
	encrypted bool
	trustAll  bool
}{
	"neo4j":        {encrypted: false, trustAll: false},
	"neo4j+s":      {encrypted: true, trustAll: false},
	"neo4j+ssc":    {encrypted: true, trustAll: true},
	"bolt":         {encrypted: false, trustAll: false},
	"bolt+s":       {encrypted: true, trustAll: false},
	"bolt+ssc":     {encrypted: true, trustAll: true},
}

// parseURI accepts the neo4j/neo4j+s/neo4j+ssc/bolt/bolt+s/bolt+ssc scheme
// family and resolves everything after "scheme://" to a database file path.
func parseURI(uri string) (parsedURI, error) {
	idx := strings.Index(uri, "://")
	if idx < 0 {
		return parsedURI{}, fmt.Errorf("graphdb: malformed URI %q: missing scheme", uri)
	}
	scheme := uri[:idx]
	rest := uri[idx+3:]
	if rest == "" {
		return parsedURI{}, fmt.Errorf("graphdb: malformed URI %q: missing target", uri)
	}
	props, ok := validSchemes[scheme]
	if !ok {
		return parsedURI{}, fmt.Errorf("graphdb: unsupported URI scheme %q", scheme)
	}
	return parsedURI{Scheme: scheme, Target: rest, Encrypted: props.encrypted, TrustAllCerts: props.trustAll}, nil
}
