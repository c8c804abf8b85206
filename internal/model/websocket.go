package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage is pushed after each processed chunk.
type WSProgressMessage struct {
	Type         string    `json:"type"`
	JobID        string    `json:"jobId"`
	Status       JobStatus `json:"status"`
	TargetCount  int       `json:"targetCount"`
	SuccessCount int       `json:"successCount"`
	FailureCount int       `json:"failureCount"`
}

// WSCompleteMessage carries the terminal job state.
type WSCompleteMessage struct {
	Type   string             `json:"type"`
	JobID  string             `json:"jobId"`
	Result *JobStatusResponse `json:"result"`
}

// WSErrorMessage represents a whole-job failure
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
