package once

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/dirmirror/cmd/util"
	"github.com/sidkik/dirmirror/pkg/config"
	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/sync"
)

// Mocked out for unit testing.
var stdout io.Writer = os.Stdout

// New creates a new `once` command.
func New() *cobra.Command {
	var flags util.MirrorFlags
	cobraCmd := &cobra.Command{
		Use:   "once [source] [replica]",
		Short: "Run a single synchronization pass",
		Long: `Mirror the source folder onto the replica folder once, and exit.

The exit code is non-zero if the pass couldn't run, or if any file failed to
synchronize.`,
		Args: cobra.MaximumNArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			cfg, err := flags.Load(args)
			if err != nil {
				util.HandleFatalError(err)
			}

			if err := run(cfg); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	flags.Register(cobraCmd)
	return cobraCmd
}

func run(cfg config.Mirror) error {
	session, err := util.OpenSession(cfg, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.WithError(err).Warn("Failed to clean up")
		}
	}()

	res, err := session.Pass()
	if err != nil {
		return errors.WithContext(err, "synchronize")
	}

	return checkResult(res, cfg.LogFile)
}

// checkResult returns an error if any file failed to synchronize.
func checkResult(res sync.Result, logFile string) error {
	if len(res.Failed) > 0 {
		return errors.NewFriendlyError("%d file(s) failed to synchronize. "+
			"See %q for details.", len(res.Failed), logFile)
	}
	return nil
}
