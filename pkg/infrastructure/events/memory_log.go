package events

import (
	"sync"
)

// MemoryLog is an in-memory, concurrency-safe audit log
type MemoryLog struct {
	mutex   sync.RWMutex
	streams map[string][]Event
	all     []Event
}

// NewMemoryLog creates an empty in-memory audit log
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		streams: make(map[string][]Event),
	}
}

// Verify interface compliance
var _ Log = (*MemoryLog)(nil)

// Append stores an event, assigning its stream version
func (l *MemoryLog) Append(event Event) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	event.Version = len(l.streams[event.StreamID]) + 1
	l.streams[event.StreamID] = append(l.streams[event.StreamID], event)
	l.all = append(l.all, event)
}

// Stream returns all events for a stream in append order
func (l *MemoryLog) Stream(streamID string) []Event {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	stream := l.streams[streamID]
	out := make([]Event, len(stream))
	copy(out, stream)
	return out
}

// All returns every event in append order
func (l *MemoryLog) All() []Event {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	out := make([]Event, len(l.all))
	copy(out, l.all)
	return out
}
