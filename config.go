package graphdb

import "time"

// Config holds Driver-level tuning knobs. NewDriver starts from
// defaultConfig and applies any Configurer options passed to it.
type Config struct {
	MaxTransactionRetryTime      time.Duration
	MaxConnectionLifetime        time.Duration
	ConnectionAcquisitionTimeout time.Duration
	FetchSize                    int
	TransactionTimeout           time.Duration
}

func defaultConfig() Config {
	return Config{
		MaxTransactionRetryTime:      30 * time.Second,
		MaxConnectionLifetime:        time.Hour,
		ConnectionAcquisitionTimeout: 60 * time.Second,
		FetchSize:                    1000,
		TransactionTimeout:           5 * time.Minute,
	}
}

// Configurer mutates a Config; passed to NewDriver as functional options,
// mirroring the neo4j-go-driver contract's configuration style.
type Configurer func(*Config)

// WithMaxTransactionRetryTime bounds how long ExecuteRead/ExecuteWrite keep
// retrying a transaction function against a transient error.
func WithMaxTransactionRetryTime(d time.Duration) Configurer {
	return func(c *Config) { c.MaxTransactionRetryTime = d }
}

// WithFetchSize sets Config.FetchSize. A Result holds every record of its
// query as soon as the query has run, so the value does not change how
// records are fetched.
func WithFetchSize(n int) Configurer {
	return func(c *Config) { c.FetchSize = n }
}

// WithTransactionTimeout sets the idle timeout after which an open
// transaction lazily expires.
func WithTransactionTimeout(d time.Duration) Configurer {
	return func(c *Config) { c.TransactionTimeout = d }
}
