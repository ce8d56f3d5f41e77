package util

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/dirmirror/pkg/config"
	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/sync"
)

func TestHandleFatalError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		expStderr string
	}{
		{
			name:      "FriendlyError",
			err:       errors.NewFriendlyError("Source folder %q does not exist!", "/src"),
			expStderr: "Source folder \"/src\" does not exist!\n",
		},
		{
			name:      "WrappedFriendlyError",
			err:       errors.WithContext(errors.NewFriendlyError("friendly"), "context"),
			expStderr: "friendly\n",
		},
		{
			name:      "OtherError",
			err:       errors.New("unexpected"),
			expStderr: "",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			var exitCode *int
			stderr = &out
			exit = func(code int) { exitCode = &code }

			HandleFatalError(test.err)
			require.NotNil(t, exitCode)
			assert.Equal(t, 1, *exitCode)
			assert.Equal(t, test.expStderr, out.String())
		})
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		flags    MirrorFlags
		args     []string
		exp      config.Mirror
		expError bool
	}{
		{
			name: "NoArgs",
			exp:  config.Mirror{},
		},
		{
			name: "AllArgs",
			args: []string{"src", "dst", "10", "sync.log"},
			exp: config.Mirror{
				Source:   "src",
				Replica:  "dst",
				Interval: config.Duration(10 * time.Second),
				LogFile:  "sync.log",
			},
		},
		{
			name: "FlagsOverrideArgs",
			flags: MirrorFlags{
				Interval:  time.Minute,
				LogFile:   "flag.log",
				LogFormat: "json",
				Except:    []string{"*.tmp"},
			},
			args: []string{"src", "dst", "10", "sync.log"},
			exp: config.Mirror{
				Source:    "src",
				Replica:   "dst",
				Interval:  config.Duration(time.Minute),
				LogFile:   "flag.log",
				LogFormat: "json",
				Except:    []string{"*.tmp"},
			},
		},
		{
			name:     "NonNumericInterval",
			args:     []string{"src", "dst", "soon"},
			expError: true,
		},
		{
			name:     "ZeroInterval",
			args:     []string{"src", "dst", "0"},
			expError: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			cfg, err := test.flags.parseArgs(test.args)
			if test.expError {
				_, ok := errors.GetFriendlyMessage(err)
				assert.True(t, ok, "expected a friendly error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.exp, cfg)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	replica := filepath.Join(dir, "replica")
	require.NoError(t, os.Mkdir(source, 0755))

	configPath := filepath.Join(dir, "dirmirror.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`source: source
replica: replica
interval: 5s
except:
- "*.tmp"
`), 0644))

	t.Run("ConfigFile", func(t *testing.T) {
		cfg, err := MirrorFlags{ConfigPath: configPath}.Load(nil)
		require.NoError(t, err)
		assert.Equal(t, source, cfg.Source)
		assert.Equal(t, replica, cfg.Replica)
		assert.Equal(t, config.Duration(5*time.Second), cfg.Interval)
		assert.Equal(t, []string{"*.tmp"}, cfg.Except)
		assert.Equal(t, config.DefaultLogFile, cfg.LogFile)
	})

	t.Run("ArgsOverrideConfigFile", func(t *testing.T) {
		other := filepath.Join(dir, "other")
		flags := MirrorFlags{ConfigPath: configPath, Except: []string{"*.bak"}}
		cfg, err := flags.Load([]string{source, other, "60"})
		require.NoError(t, err)
		assert.Equal(t, other, cfg.Replica)
		assert.Equal(t, config.Duration(time.Minute), cfg.Interval)
		assert.Equal(t, []string{"*.tmp", "*.bak"}, cfg.Except)
	})

	t.Run("MissingSource", func(t *testing.T) {
		_, err := MirrorFlags{}.Load([]string{filepath.Join(dir, "missing"), replica})
		msg, ok := errors.GetFriendlyMessage(err)
		require.True(t, ok, "expected a friendly error, got %v", err)
		assert.Contains(t, msg, "does not exist")
	})

	t.Run("MissingReplica", func(t *testing.T) {
		_, err := MirrorFlags{}.Load([]string{source})
		_, ok := errors.GetFriendlyMessage(err)
		assert.True(t, ok, "expected a friendly error, got %v", err)
	})
}

func TestSession(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	replica := filepath.Join(dir, "replica")
	require.NoError(t, os.MkdirAll(filepath.Join(source, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "sub", "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "b.tmp"), []byte("b"), 0644))

	cfg := config.Default()
	cfg.Source = source
	cfg.Replica = replica
	cfg.LogFile = filepath.Join(dir, "sync.log")
	cfg.Except = []string{"*.tmp"}

	var console bytes.Buffer
	session, err := OpenSession(cfg, &console)
	require.NoError(t, err)
	assert.Contains(t, console.String(), "Replica folder does not exist. Created new folder.")

	// Only one session may use a replica at a time.
	_, err = OpenSession(cfg, &console)
	assert.Error(t, err)

	res, err := session.Pass()
	require.NoError(t, err)
	assert.Equal(t, []string{"sub/a.txt"}, res.Created)
	assert.Empty(t, res.Failed)

	contents, err := os.ReadFile(filepath.Join(replica, "sub", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(contents))
	assert.NoFileExists(t, filepath.Join(replica, "b.tmp"))

	require.NoError(t, session.Close())

	logContents, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(logContents), " - "+
		sync.Event{Type: sync.FileCreated, Path: "sub/a.txt"}.Message())
	assert.Contains(t, console.String(), fmt.Sprintln("Creating file: sub/a.txt"))

	// The lock is released once the session is closed.
	session, err = OpenSession(cfg, &console)
	require.NoError(t, err)
	require.NoError(t, session.Close())
}
