// Package schedule repeatedly runs a task, waiting a fixed interval after
// each run completes.
package schedule

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// Task is a single unit of work. Returned errors are logged, and the task is
// retried after the next interval.
type Task func() error

// Scheduler runs a Task periodically. The interval is measured from the end
// of one run to the start of the next, so a slow run delays the next one
// rather than overlapping with it.
type Scheduler struct {
	Interval time.Duration
	Clock    clockwork.Clock

	// OnError is called with every error returned by the task. If nil, the
	// error is logged.
	OnError func(error)
}

// New creates a Scheduler that uses the real clock.
func New(interval time.Duration) Scheduler {
	return Scheduler{Interval: interval, Clock: clockwork.NewRealClock()}
}

// Run runs the task immediately, and then again every interval until ctx is
// cancelled. A run that's in progress is never interrupted; cancellation
// takes effect before the next run starts. Run returns the number of runs
// and ctx.Err().
func (s Scheduler) Run(ctx context.Context, task Task) (int, error) {
	if s.Interval <= 0 {
		return 0, errors.New("interval must be positive, got %s", s.Interval)
	}

	clock := s.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	runs := 0
	for {
		if err := ctx.Err(); err != nil {
			return runs, err
		}

		if err := task(); err != nil {
			s.handleError(err)
		}
		runs++

		timer := clock.NewTimer(s.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return runs, ctx.Err()
		case <-timer.Chan():
		}
	}
}

func (s Scheduler) handleError(err error) {
	if s.OnError != nil {
		s.OnError(err)
		return
	}
	log.WithError(err).Errorf("Run failed. Will retry in %s.", s.Interval)
}
