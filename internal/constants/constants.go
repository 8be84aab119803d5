package constants

import "time"

const (
	DatabaseTimeout = 5 * time.Second
	AlertTimeout    = 10 * time.Second
	UploadTimeout   = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 1000
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// ReplayBatchSize bounds the users per IPC message and per bulk write transaction.
	ReplayBatchSize = 1000
	// DumpChunkSize is the read size used when streaming NDJSON dumps.
	DumpChunkSize = 64 * 1024
	// UserLockStripes is the number of mutexes the live path hashes user ids onto.
	UserLockStripes = 256
)

const (
	KillsDumpFile    = "kills.ndjson"
	DeathsDumpFile   = "deaths.ndjson"
	SessionsDumpFile = "sessions.ndjson"
)
