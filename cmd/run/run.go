package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/dirmirror/cmd/util"
	"github.com/sidkik/dirmirror/pkg/config"
	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/schedule"
)

// Mocked out for unit testing.
var stdout io.Writer = os.Stdout

// New creates a new `run` command.
func New() *cobra.Command {
	var flags util.MirrorFlags
	cobraCmd := &cobra.Command{
		Use:   "run [source] [replica] [interval_seconds] [log_file]",
		Short: "Periodically mirror the source folder onto the replica",
		Long: `Mirror the source folder onto the replica folder, then repeat after every
interval until interrupted.

Files missing from the replica are copied, files whose contents differ are
overwritten, and files that don't exist in the source are deleted. Each of
these actions is written to the log file and printed.

The replica folder is created if it doesn't exist.`,
		Args: cobra.MaximumNArgs(4),
		Run: func(_ *cobra.Command, args []string) {
			cfg, err := flags.Load(args)
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := run(ctx, cfg, clockwork.NewRealClock()); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	flags.Register(cobraCmd)
	return cobraCmd
}

// run mirrors until ctx is cancelled. Errors from individual passes are
// reported through the audit log and don't stop the loop.
func run(ctx context.Context, cfg config.Mirror, clock clockwork.Clock) error {
	session, err := util.OpenSession(cfg, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.WithError(err).Warn("Failed to clean up")
		}
	}()

	interval := time.Duration(cfg.Interval)
	fmt.Fprintf(stdout, "Mirroring %s to %s every %s. Press Ctrl+C to stop.\n",
		cfg.Source, cfg.Replica, interval)

	scheduler := schedule.Scheduler{
		Interval: interval,
		Clock:    clock,
		OnError: func(err error) {
			log.WithError(err).Errorf("Synchronization failed. Will retry in %s.", interval)
		},
	}
	passes, err := scheduler.Run(ctx, func() error {
		_, err := session.Pass()
		return err
	})

	log.WithField("passes", passes).Debug("Stopped mirroring")
	if err != nil && err != context.Canceled {
		return errors.WithContext(err, "schedule")
	}
	return nil
}
