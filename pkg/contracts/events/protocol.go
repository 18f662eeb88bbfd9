package events

// Protocol announced in the connect message
const (
	ProtocolVersion = "1.0"
	ProtocolName    = "tpcpower-websocket-protocol"
)

// Protocol error codes
const (
	ErrCodeInvalidFrame    = "INVALID_FRAME"
	ErrCodeUnsupportedType = "UNSUPPORTED_TYPE"
	ErrCodeInvalidCriteria = "INVALID_CRITERIA"
	ErrCodeDatasetLoad     = "DATASET_UNAVAILABLE"
	ErrCodeMessageTooLarge = "MESSAGE_TOO_LARGE"
	ErrCodeServerError     = "SERVER_ERROR"
)

// ConnectionLimits advertises per-connection limits. Larger client messages
// close the connection; a client whose queue overflows is dropped.
type ConnectionLimits struct {
	MaxMessageSize int64 `json:"max_message_size"`
	MaxQueueSize   int   `json:"max_queue_size"`
}
