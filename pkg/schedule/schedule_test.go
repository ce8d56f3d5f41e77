package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/dirmirror/pkg/errors"
)

type runResult struct {
	runs int
	err  error
}

func TestRunWaitsBetweenRuns(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{}, 10)
	scheduler := Scheduler{Interval: 10 * time.Second, Clock: clock}

	done := make(chan runResult, 1)
	go func() {
		runs, err := scheduler.Run(ctx, func() error {
			ran <- struct{}{}
			return nil
		})
		done <- runResult{runs, err}
	}()

	// The first run happens immediately.
	<-ran

	// The next run only happens after the full interval.
	clock.BlockUntil(1)
	clock.Advance(9 * time.Second)
	select {
	case <-ran:
		t.Fatal("ran before the interval elapsed")
	default:
	}

	clock.Advance(time.Second)
	<-ran

	clock.BlockUntil(1)
	cancel()

	res := <-done
	assert.Equal(t, 2, res.runs)
	assert.Equal(t, context.Canceled, res.err)
}

func TestRunContinuesAfterErrors(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskErr := errors.New("root unavailable")
	var handled []error
	scheduler := Scheduler{
		Interval: time.Minute,
		Clock:    clock,
		OnError:  func(err error) { handled = append(handled, err) },
	}

	calls := 0
	done := make(chan runResult, 1)
	go func() {
		runs, err := scheduler.Run(ctx, func() error {
			calls++
			if calls == 3 {
				cancel()
			}
			return taskErr
		})
		done <- runResult{runs, err}
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	res := <-done
	assert.Equal(t, 3, res.runs)
	assert.Equal(t, context.Canceled, res.err)
	assert.Equal(t, []error{taskErr, taskErr, taskErr}, handled)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runs, err := New(time.Second).Run(ctx, func() error {
		t.Fatal("task shouldn't run")
		return nil
	})
	assert.Equal(t, 0, runs)
	assert.Equal(t, context.Canceled, err)
}

func TestRunInvalidInterval(t *testing.T) {
	_, err := Scheduler{}.Run(context.Background(), func() error { return nil })
	require.Error(t, err)
}
