package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventMessage(t *testing.T) {
	tests := []struct {
		event      Event
		expMessage string
		expFailure bool
	}{
		{
			event:      Event{Type: PassStarted},
			expMessage: "Starting synchronization.",
		},
		{
			event:      Event{Type: FileCreated, Path: "sub/b.txt"},
			expMessage: "Creating file: sub/b.txt",
		},
		{
			event:      Event{Type: FileUpdated, Path: "a.txt"},
			expMessage: "Updating file: a.txt",
		},
		{
			event:      Event{Type: FileDeleted, Path: "old.txt"},
			expMessage: "Deleting file: old.txt",
		},
		{
			event:      Event{Type: FileActionFailed, Path: "a.txt", Reason: "permission denied"},
			expMessage: "Failed to synchronize file: a.txt (permission denied)",
			expFailure: true,
		},
		{
			event:      Event{Type: PassCompleted},
			expMessage: "Synchronization complete.",
		},
		{
			event:      Event{Type: PassAborted, Reason: "root is gone"},
			expMessage: "Synchronization aborted: root is gone",
			expFailure: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.event.Type.String(), func(t *testing.T) {
			assert.Equal(t, test.expMessage, test.event.Message())
			assert.Equal(t, test.expFailure, test.event.IsFailure())
		})
	}
}

func TestEventSinkFunc(t *testing.T) {
	var received []Event
	sink := EventSinkFunc(func(e Event) { received = append(received, e) })
	sink.Emit(Event{Type: PassStarted})
	Discard.Emit(Event{Type: PassCompleted})

	assert.Equal(t, []Event{{Type: PassStarted}}, received)
	assert.Equal(t, "EventType(42)", EventType(42).String())
}

func TestTruncateSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, truncateSlice([]string{"a", "b"}, 5))
	assert.Equal(t, []string{"a", "b", "... 2 more ..."},
		truncateSlice([]string{"a", "b", "c", "d"}, 2))
}

func TestResultLogFields(t *testing.T) {
	res := Result{
		Created:     []string{"a"},
		Deleted:     []string{"b"},
		Failed:      map[string]error{"c": nil},
		BytesCopied: 2048,
	}
	fields := res.LogFields()
	assert.Equal(t, "2.0 kB", fields["copied"])
	assert.Equal(t, []string{"a"}, fields["created"])
	assert.Equal(t, []string{"b"}, fields["deleted"])
	assert.Equal(t, []string{"c"}, fields["failed"])
	assert.NotContains(t, fields, "updated")
	assert.Equal(t, 2, res.Actions())
}
