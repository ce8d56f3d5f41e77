package once

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/dirmirror/pkg/config"
	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/sync"
)

func setup(t *testing.T) (config.Mirror, string) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Source = filepath.Join(dir, "source")
	cfg.Replica = filepath.Join(dir, "replica")
	cfg.LogFile = filepath.Join(dir, "sync.log")
	require.NoError(t, os.Mkdir(cfg.Source, 0755))
	return cfg, dir
}

func TestOnce(t *testing.T) {
	cfg, _ := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Source, "a.txt"), []byte("a"), 0644))

	var out bytes.Buffer
	stdout = &out

	require.NoError(t, run(cfg))
	contents, err := os.ReadFile(filepath.Join(cfg.Replica, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(contents))
	assert.Contains(t, out.String(), "Synchronization complete.")
}

func TestOnceSourceRemoved(t *testing.T) {
	cfg, _ := setup(t)
	require.NoError(t, os.Remove(cfg.Source))

	var out bytes.Buffer
	stdout = &out

	err := run(cfg)
	_, ok := errors.RootCause(err).(errors.RootUnavailable)
	assert.True(t, ok, "unexpected error: %v", err)
	assert.Contains(t, out.String(), "Synchronization aborted")
}

func TestCheckResult(t *testing.T) {
	tests := []struct {
		name   string
		res    sync.Result
		expMsg string
	}{
		{
			name: "NoFailures",
			res:  sync.Result{Created: []string{"a"}, Failed: map[string]error{}},
		},
		{
			name: "Failures",
			res: sync.Result{
				Created: []string{"a"},
				Failed: map[string]error{
					"b": errors.New("permission denied"),
					"c": errors.New("permission denied"),
				},
			},
			expMsg: `2 file(s) failed to synchronize. See "/var/log/dirmirror.log" for details.`,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			err := checkResult(test.res, "/var/log/dirmirror.log")
			if test.expMsg == "" {
				assert.NoError(t, err)
				return
			}

			msg, ok := errors.GetFriendlyMessage(err)
			require.True(t, ok, "expected a friendly error, got %v", err)
			assert.Equal(t, test.expMsg, msg)
		})
	}
}
