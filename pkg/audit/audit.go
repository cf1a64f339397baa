// Package audit records administrative actions such as graph reloads and
// rejected credentials. Events are kept in a bounded
// in-memory trail and optionally appended to a hash-chained JSONL file.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action is what an actor attempted.
type Action string

const (
	ActionReloadGraph  Action = "reload_graph"
	ActionAuthenticate Action = "authenticate"
)

// Status is the outcome of an action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusDenied  Status = "denied"
)

// Event is one audit record.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Subject   string         `json:"subject,omitempty"`
	Role      string         `json:"role,omitempty"`
	Action    Action         `json:"action"`
	Resource  string         `json:"resource,omitempty"`
	Status    Status         `json:"status"`
	Error     string         `json:"error,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Logger records events.
type Logger interface {
	Log(e *Event) error
}

// Sink persists events behind a Trail.
type Sink interface {
	Write(e *Event) error
	Close() error
}

// Filter selects events in Recent. Zero fields match everything.
type Filter struct {
	Action  Action
	Status  Status
	Subject string
	Since   time.Time
}

func (f Filter) match(e *Event) bool {
	switch {
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.Status != "" && e.Status != f.Status:
		return false
	case f.Subject != "" && e.Subject != f.Subject:
		return false
	case !f.Since.IsZero() && e.Timestamp.Before(f.Since):
		return false
	}
	return true
}

// Trail keeps the most recent events in a ring and forwards every event to
// an optional sink.
type Trail struct {
	mu    sync.Mutex
	ring  []Event
	next  int
	full  bool
	total int64
	sink  Sink
	now   func() time.Time
}

// NewTrail creates a trail holding up to capacity events. sink may be nil.
func NewTrail(capacity int, sink Sink) *Trail {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Trail{ring: make([]Event, capacity), sink: sink, now: time.Now}
}

// Log stamps e with an ID and timestamp when missing, stores it and writes
// it to the sink. The event is kept in memory even when the sink fails.
func (t *Trail) Log(e *Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now().UTC()
	}

	t.ring[t.next] = *e
	t.next = (t.next + 1) % len(t.ring)
	if t.next == 0 {
		t.full = true
	}
	t.total++

	if t.sink != nil {
		return t.sink.Write(e)
	}
	return nil
}

// Recent returns up to limit matching events, newest first. limit <= 0
// returns every retained match.
func (t *Trail) Recent(limit int, f Filter) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.next
	if t.full {
		n = len(t.ring)
	}
	out := make([]Event, 0, min(n, max(limit, 0)))
	for i := 1; i <= n; i++ {
		e := &t.ring[(t.next-i+len(t.ring))%len(t.ring)]
		if !f.match(e) {
			continue
		}
		out = append(out, *e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Total returns the number of events logged since creation.
func (t *Trail) Total() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Close closes the sink.
func (t *Trail) Close() error {
	if t.sink == nil {
		return nil
	}
	return t.sink.Close()
}
