// Package events provides an audit trail of stock movements. Blood banking
// requires traceability from intake through allocation to discard; every
// state-changing operation appends an event keyed by the unit or request it
// concerns.
package events

import (
	"time"
)

// Type identifies a kind of audit event
type Type string

const (
	StockReceived  Type = "stock.received"
	StockAllocated Type = "stock.allocated"
	StockDiscarded Type = "stock.discarded"

	RequestCreated Type = "request.created"
)

// Event is one audit record. StreamID groups events for a single unit or
// request; Version is assigned by the log on append, starting at 1 per
// stream.
type Event struct {
	Type     Type      `json:"type"`
	StreamID string    `json:"stream_id"`
	At       time.Time `json:"at"`
	Version  int       `json:"version"`
	Data     any       `json:"data,omitempty"`
}

// Log records audit events
type Log interface {
	// Append stores an event, assigning its stream version
	Append(event Event)

	// Stream returns all events for a stream in append order
	Stream(streamID string) []Event

	// All returns every event in append order
	All() []Event
}
