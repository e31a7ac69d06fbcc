package graphdb

// ServerInfo describes the embedded database a Driver is attached to,
// returned by GetServerInfo for API-contract compatibility with the Neo4j
// driver.
type ServerInfo struct {
	Address      string
	Agent        string
	ProtocolVersion string
}

const serverAgent = "graphdb-embedded/1.0"
