package util

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/dirmirror/pkg/config"
	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/lock"
	"github.com/sidkik/dirmirror/pkg/sync"
	"github.com/sidkik/dirmirror/pkg/synclog"
)

// MirrorFlags are the flags shared by the commands that mirror a folder.
type MirrorFlags struct {
	ConfigPath string
	Interval   time.Duration
	LogFile    string
	LogFormat  string
	Except     []string
}

// Register adds the flags to `cmd`.
func (f *MirrorFlags) Register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.ConfigPath, "config", "c", "",
		"Path to a YAML mirror config. Arguments and flags override its values.")
	flags.DurationVar(&f.Interval, "interval", 0,
		fmt.Sprintf("Time to wait after each pass (default %s)", config.DefaultInterval))
	flags.StringVar(&f.LogFile, "log-file", "",
		fmt.Sprintf("Path to the audit log (default %q)", config.DefaultLogFile))
	flags.StringVar(&f.LogFormat, "log-format", "",
		fmt.Sprintf("Audit log format, %q or %q", synclog.FormatText, synclog.FormatJSON))
	flags.StringSliceVar(&f.Except, "except", nil,
		"Gitignore-style pattern for paths to leave alone. May be repeated.")
}

// Load builds the mirror config. Values are taken, in increasing priority,
// from the defaults, the config file, the positional arguments
// (`source replica interval-seconds log-file`), and the flags. The result is
// validated.
func (f MirrorFlags) Load(args []string) (config.Mirror, error) {
	cfg := config.Default()
	if f.ConfigPath != "" {
		fileCfg, err := config.ParseMirror(f.ConfigPath)
		if err != nil {
			return config.Mirror{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}

	override, err := f.parseArgs(args)
	if err != nil {
		return config.Mirror{}, err
	}

	wd, err := os.Getwd()
	if err != nil {
		return config.Mirror{}, errors.WithContext(err, "get working directory")
	}

	if err := override.Resolve(wd); err != nil {
		return config.Mirror{}, errors.WithContext(err, "resolve paths")
	}

	cfg = cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return config.Mirror{}, err
	}
	return cfg, nil
}

func (f MirrorFlags) parseArgs(args []string) (config.Mirror, error) {
	var override config.Mirror
	if len(args) > 0 {
		override.Source = args[0]
	}
	if len(args) > 1 {
		override.Replica = args[1]
	}
	if len(args) > 2 {
		seconds, err := strconv.Atoi(args[2])
		if err != nil || seconds <= 0 {
			return config.Mirror{}, errors.NewFriendlyError(
				"The interval (%q) must be a positive number of seconds.", args[2])
		}
		override.Interval = config.Duration(time.Duration(seconds) * time.Second)
	}
	if len(args) > 3 {
		override.LogFile = args[3]
	}

	if f.Interval != 0 {
		override.Interval = config.Duration(f.Interval)
	}
	if f.LogFile != "" {
		override.LogFile = f.LogFile
	}
	override.LogFormat = f.LogFormat
	override.Except = f.Except
	return override, nil
}

// Session holds the resources used while mirroring: the replica lock and the
// audit log. It's opened once per process and used for every pass.
type Session struct {
	Mirror sync.Mirror

	lock *lock.Lock
	sink *synclog.Sink
}

// OpenSession prepares to mirror according to `cfg`. The replica is created
// if it doesn't exist, and locked so that other dirmirror processes can't
// mirror into it. Progress messages are written to `console`.
func OpenSession(cfg config.Mirror, console io.Writer) (*Session, error) {
	created, err := config.EnsureReplica(cfg.Replica)
	if err != nil {
		return nil, errors.WithContext(err, "prepare replica")
	}
	if created {
		fmt.Fprintln(console, "Replica folder does not exist. Created new folder.")
	}

	replicaLock, err := lock.Acquire(cfg.Replica)
	if err != nil {
		return nil, err
	}

	sink, err := synclog.Open(cfg.LogFile, cfg.LogFormat, console)
	if err != nil {
		if err := replicaLock.Release(); err != nil {
			log.WithError(err).Warn("Failed to release replica lock")
		}
		return nil, errors.WithContext(err, "open audit log")
	}

	return &Session{
		Mirror: sync.Mirror{
			Source:  cfg.Source,
			Replica: cfg.Replica,
			Ignore:  sync.NewIgnoreList(cfg.Except...),
			Sink:    sink,
		},
		lock: replicaLock,
		sink: sink,
	}, nil
}

// Pass runs a single synchronization pass and logs a summary of it.
func (s *Session) Pass() (sync.Result, error) {
	res, err := s.Mirror.Synchronize()
	if err != nil {
		return res, err
	}

	entry := log.WithFields(res.LogFields())
	switch {
	case len(res.Failed) > 0:
		entry.Warnf("Synchronized with %d failures", len(res.Failed))
	case res.Actions() > 0:
		entry.Info("Synchronized files..")
	default:
		entry.Debug("Already synchronized")
	}
	return res, nil
}

// Close releases the audit log and the replica lock.
func (s *Session) Close() error {
	sinkErr := s.sink.Close()
	if err := s.lock.Release(); err != nil {
		return err
	}
	return sinkErr
}
