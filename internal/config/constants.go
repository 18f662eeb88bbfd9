package config

import "time"

// Application constants
const (
	AppName = "TPC power information"

	// Defaults
	DefaultPort           = 8080
	DefaultDatasetPath    = "data/clean.parquet"
	DefaultLogFile        = "logs/app.log"
	DefaultMaxRows        = 1000
	DefaultRequestTimeout = 60 * time.Second

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// WebSocket
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
)
