// Package protocol defines the JSON-RPC 2.0 methods served on the watch
// control socket.
package protocol

import "time"

const (
	MethodTrigger = "sync.trigger"
	MethodStatus  = "sync.status"
	MethodHealth  = "health"
)

const (
	CodeInvalidParams  = -32602
	CodeMethodNotFound = -32601
	CodeInternalError  = -32603
)

type TriggerParams struct {
	Reason string `json:"reason,omitempty"`
}

type TriggerResult struct {
	// Accepted is false when a trigger was already pending and this one was
	// coalesced into it.
	Accepted bool `json:"accepted"`
	InFlight bool `json:"in_flight"`
}

type RunSummary struct {
	ID           string    `json:"id"`
	Trigger      string    `json:"trigger"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`
	Changed      bool      `json:"changed"`
	BytesWritten int       `json:"bytes_written"`
	DocHash      string    `json:"doc_hash,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	Error        string    `json:"error,omitempty"`
}

type StatusResult struct {
	PID       int         `json:"pid"`
	URL       string      `json:"url"`
	HostFile  string      `json:"host_file"`
	StartedAt time.Time   `json:"started_at"`
	Uptime    int64       `json:"uptime"`
	InFlight  bool        `json:"in_flight"`
	Pending   bool        `json:"pending"`
	Syncs     int64       `json:"syncs"`
	Failures  int64       `json:"failures"`
	Coalesced int64       `json:"coalesced"`
	LastRun   *RunSummary `json:"last_run,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Uptime int64  `json:"uptime"`
}
