package sync

import (
	"fmt"
	"time"
)

// EventType identifies what happened during a pass.
type EventType int

const (
	// PassStarted is emitted before either tree is scanned.
	PassStarted EventType = iota
	// FileCreated is emitted after a file missing from the replica was copied.
	FileCreated
	// FileUpdated is emitted after a replica file with stale contents was
	// overwritten.
	FileUpdated
	// FileDeleted is emitted after a file missing from the source was removed
	// from the replica.
	FileDeleted
	// FileActionFailed is emitted when a file couldn't be compared, copied,
	// or removed. The rest of the pass continues.
	FileActionFailed
	// PassCompleted is emitted once both stages have finished.
	PassCompleted
	// PassAborted is emitted when a root can't be scanned. No files were
	// modified.
	PassAborted
)

func (t EventType) String() string {
	switch t {
	case PassStarted:
		return "PassStarted"
	case FileCreated:
		return "FileCreated"
	case FileUpdated:
		return "FileUpdated"
	case FileDeleted:
		return "FileDeleted"
	case FileActionFailed:
		return "FileActionFailed"
	case PassCompleted:
		return "PassCompleted"
	case PassAborted:
		return "PassAborted"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event describes a single step of a pass.
type Event struct {
	Time time.Time
	Type EventType

	// Path is the relative path of the file the event is about. It's empty
	// for pass-level events.
	Path string

	// Reason is set for FileActionFailed and PassAborted events.
	Reason string
}

// Message returns the human readable description of the event. It doesn't
// include the timestamp, which is left to the sink.
func (e Event) Message() string {
	switch e.Type {
	case PassStarted:
		return "Starting synchronization."
	case FileCreated:
		return "Creating file: " + e.Path
	case FileUpdated:
		return "Updating file: " + e.Path
	case FileDeleted:
		return "Deleting file: " + e.Path
	case FileActionFailed:
		return fmt.Sprintf("Failed to synchronize file: %s (%s)", e.Path, e.Reason)
	case PassCompleted:
		return "Synchronization complete."
	case PassAborted:
		return fmt.Sprintf("Synchronization aborted: %s", e.Reason)
	default:
		return e.Type.String()
	}
}

// IsFailure returns whether the event reports an error.
func (e Event) IsFailure() bool {
	return e.Type == FileActionFailed || e.Type == PassAborted
}

// An EventSink receives the events of a pass in order. Emit is called
// synchronously from the pass, so slow sinks slow down the pass.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(Event)

// Emit calls f(e).
func (f EventSinkFunc) Emit(e Event) {
	f(e)
}

// Discard drops all events.
var Discard EventSink = EventSinkFunc(func(Event) {})
