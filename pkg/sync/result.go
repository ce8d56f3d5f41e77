package sync

import (
	"fmt"
	"sort"
	"time"

	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

// Result summarizes the actions applied by a pass.
type Result struct {
	Started  time.Time
	Finished time.Time

	// Created, Updated and Deleted hold the relative paths of the files that
	// were successfully acted on, in the order the actions were applied.
	Created []string
	Updated []string
	Deleted []string

	// Failed maps the relative path of each file whose action was abandoned
	// to the reason.
	Failed map[string]error

	// BytesCopied is the number of bytes written to the replica.
	BytesCopied int64
}

// Actions returns the number of files that were created, updated or deleted.
func (r Result) Actions() int {
	return len(r.Created) + len(r.Updated) + len(r.Deleted)
}

// Duration returns how long the pass took.
func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// FailedPaths returns the paths in Failed, sorted.
func (r Result) FailedPaths() []string {
	var paths []string
	for path := range r.Failed {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// LogFields returns a summary of the pass for logging. Long path lists are
// truncated.
func (r Result) LogFields() log.Fields {
	fields := log.Fields{
		"duration": r.Duration().Round(time.Millisecond).String(),
		"copied":   humanize.Bytes(uint64(r.BytesCopied)),
	}
	if len(r.Created) > 0 {
		fields["created"] = truncateSlice(r.Created, 5)
	}
	if len(r.Updated) > 0 {
		fields["updated"] = truncateSlice(r.Updated, 5)
	}
	if len(r.Deleted) > 0 {
		fields["deleted"] = truncateSlice(r.Deleted, 5)
	}
	if len(r.Failed) > 0 {
		fields["failed"] = truncateSlice(r.FailedPaths(), 5)
	}
	return fields
}

// truncateSlice truncates the given slice of strings to the given length. If
// the slice is longer than `length`, a message is appended saying how many
// more items are in the slice.
func truncateSlice(slc []string, length int) (truncated []string) {
	if len(slc) <= length {
		return slc
	}
	msg := fmt.Sprintf("... %d more ...", len(slc)-length)
	return append(append([]string{}, slc[:length]...), msg)
}
