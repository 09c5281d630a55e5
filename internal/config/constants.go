package config

import "time"

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./eztutor.db"
)

// Export queue defaults
const (
	DefaultQueueInterval    = 30 * time.Second
	DefaultQueueBaseDelay   = time.Minute
	DefaultQueueMaxDelay    = time.Hour
	DefaultQueueMaxAttempts = 144
	DefaultQueueLease       = 5 * time.Minute
)

// DefaultHTTPClientTimeout bounds every outbound provider call.
const DefaultHTTPClientTimeout = 30 * time.Second
