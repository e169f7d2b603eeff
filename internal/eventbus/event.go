// Package eventbus is the non-blocking lifecycle broadcast channel
// described in §4.6: the scheduler and drivers publish plain-value
// events, zero or more subscribers (the TUI progress renderer, an SSE
// stream, a log file) consume them, and a full subscriber buffer
// drops its oldest event rather than ever stalling the executor.
package eventbus

import "time"

// Type discriminates the kind of lifecycle event, matching the SSE
// wire contract's "type" field in §6.
type Type string

// The six event kinds named in §4.6 plus the bus's own
// DroppedEvents accounting event.
const (
	TypeBuildStarted  Type = "BuildStarted"
	TypeBuildFinished Type = "BuildFinished"
	TypeTaskStarted   Type = "TaskStarted"
	TypeTaskFinished  Type = "TaskFinished"
	TypeLogMessage    Type = "LogMessage"
	TypeCacheStats    Type = "CacheStats"
	TypeDroppedEvents Type = "DroppedEvents"
)

// Event is a single lifecycle event. It carries only primitive
// fields, per §4.6, and every event kind shares one struct shape so a
// subscriber never needs a type switch over concrete event types —
// only over Type. Fields irrelevant to a given Type are left at their
// zero value; JSON omits them via omitempty so the SSE wire form
// matches §6 exactly.
type Event struct {
	Type Type      `json:"type"`
	At   time.Time `json:"at"`

	// BuildStarted / BuildFinished
	BuildID string `json:"buildId,omitempty"`
	Success bool   `json:"success,omitempty"`

	// TaskStarted / TaskFinished / LogMessage
	TaskName string `json:"name,omitempty"`

	// TaskFinished
	DurationMs  int64  `json:"durationMs,omitempty"`
	Cached      bool   `json:"cached,omitempty"`
	CacheSource string `json:"cacheSource,omitempty"`
	Failed      bool   `json:"failed,omitempty"`

	// LogMessage
	Level string `json:"level,omitempty"`
	Text  string `json:"text,omitempty"`

	// CacheStats
	LocalHits    int   `json:"localHits,omitempty"`
	RemoteHits   int   `json:"remoteHits,omitempty"`
	Misses       int   `json:"misses,omitempty"`
	BytesAvoided int64 `json:"bytesAvoided,omitempty"`

	// DroppedEvents
	Count int `json:"count,omitempty"`
}
