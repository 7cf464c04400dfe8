package config

import "time"

// Data Sources
const (
	SourceAPI      = "api"
	SourceSnapshot = "snapshot"
)

// Drain Detection Strategies
const (
	StrategyDaily = "daily" // one dominant peak-to-valley drain per day
	StrategyLocal = "local" // every local drain episode in a day
)

// Threshold Profiles
const (
	ProfileLenient = "lenient"
	ProfileStrict  = "strict"
	ProfileCustom  = "custom"

	LenientValidThresholdPct = 10.0
	LenientFraudThresholdPct = 25.0
	StrictValidThresholdPct  = 7.0
	StrictFraudThresholdPct  = 15.0
)

// Upstream API
const (
	UpstreamDataPath    = "/api/Data/?start_date=0&end_date=2000000000"
	UpstreamTicketsPath = "/api/Tickets"
	UpstreamRetryCount  = 3
	UpstreamRetryDelay  = 2 * time.Second
	UpstreamMaxBodySize = 64 << 20

	// Longest Retry-After hint honoured; must stay well under APITimeout.
	UpstreamMaxRetryAfter = 15 * time.Second
)

// Circuit Breaker
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half_open"

	CircuitBreakerThreshold   = 3
	CircuitBreakerCooldown    = 30 * time.Second
	CircuitBreakerHalfOpenMax = 1
)

// Server
const (
	ServerPort           = 5000
	ServerReadTimeout    = 30 * time.Second
	ServerWriteTimeout   = 120 * time.Second
	ServerIdleTimeout    = 60 * time.Second
	ServerMaxHeaderBytes = 1 << 20
	APITimeout           = 60 * time.Second
	ShutdownTimeout      = 10 * time.Second
)

// Logging
const (
	LogDir         = "./logs"
	LogFilePrefix  = "truthserum-"
	LogFilePattern = "truthserum-%s.log" // %s = YYYY-MM-DD
	LogMaxAgeDays  = 30
)

// Database
const (
	DBBusyTimeout = 5000 // milliseconds
	DBInsertBatch = 500
)
