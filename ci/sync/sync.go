package sync

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/dirmirror/ci/util"
	"github.com/sidkik/dirmirror/pkg/config"
	"github.com/sidkik/dirmirror/pkg/errors"
)

// Test runs the end-to-end mirroring tests against the dirmirror binary.
func Test(t *testing.T, helper *util.TestHelper) {
	t.Run("FileChange", func(t *testing.T) {
		testFileChange(t, helper)
	})
	t.Run("Ignore", func(t *testing.T) {
		testIgnore(t, helper)
	})
	t.Run("Once", func(t *testing.T) {
		testOnce(t, helper)
	})
	t.Run("SingleInstance", func(t *testing.T) {
		testSingleInstance(t, helper)
	})
}

func testFileChange(t *testing.T, helper *util.TestHelper) {
	testCtx, cancelTest := context.WithCancel(context.Background())
	defer cancelTest()

	refFile := randomFile("nested/dir/test-file")

	// Replica files are written with a fixed mode, and are only rewritten
	// when their contents change.
	var mirrored file
	tests := []struct {
		name   string
		change fsOp
		check  func(mockFs) error
	}{
		{
			name:   "ChangeContents",
			change: createFile(refFile.WithContents("changed contents")),
			check:  shouldHaveContents(refFile.path, "changed contents"),
		},
		{
			name:   "ChangeMode",
			change: createFile(refFile.WithMode(0600)),
			check: func(fs mockFs) error {
				return shouldBeUnchanged(fs, mirrored)
			},
		},
		{
			name:   "ChangeModTime",
			change: createFile(refFile.WithModTime(refFile.modTime.Add(time.Minute))),
			check: func(fs mockFs) error {
				return shouldBeUnchanged(fs, mirrored)
			},
		},
		{
			name:   "RemoveFile",
			change: removeFile(refFile.path),
			check:  shouldNotExist(refFile.path),
		},
	}

	fs, err := newMockFs()
	require.NoError(t, err)
	defer fs.cleanup()

	require.NoError(t, createFile(randomFile("other-file"))(fs))
	require.NoError(t, createReplicaFile(randomFile("stale-file"))(fs))

	mirrorCtx, cancelMirror := context.WithCancel(testCtx)
	waitErr, err := helper.Mirror(mirrorCtx, fs.source, fs.replica, "1", fs.logFile)
	require.NoError(t, err, "start dirmirror run")
	defer func() {
		cancelMirror()
		assert.NoError(t, <-waitErr, "run dirmirror")
	}()

	require.NoError(t, shouldNotExist("stale-file")(fs))

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			require.NoError(t, createFile(refFile)(fs))
			require.NoError(t, helper.WaitUntilSynced(testCtx, fs.source, fs.replica))

			var exists bool
			mirrored, exists, err = getReplicaFile(fs, refFile.path)
			require.NoError(t, err)
			require.True(t, exists)

			require.NoError(t, test.change(fs))
			require.NoError(t, helper.WaitUntilSynced(testCtx, fs.source, fs.replica))

			// Give unchanged files a chance to be rewritten incorrectly.
			time.Sleep(2 * time.Second)
			assert.NoError(t, test.check(fs))
		})
	}

	logContents, err := os.ReadFile(fs.logFile)
	require.NoError(t, err)
	for _, exp := range []string{
		"Starting synchronization.",
		"Creating file: other-file",
		"Deleting file: stale-file",
		"Updating file: nested/dir/test-file",
		"Synchronization complete.",
	} {
		assert.Contains(t, string(logContents), exp)
	}
}

func testIgnore(t *testing.T, helper *util.TestHelper) {
	fs, err := newMockFs()
	require.NoError(t, err)
	defer fs.cleanup()

	cfg := config.Default()
	cfg.Except = []string{"*.tmp", "build/"}
	configPath, err := fs.writeConfig(cfg)
	require.NoError(t, err)

	ignoredInReplica := randomFile("keep.tmp")
	require.NoError(t, createFile(randomFile("a.txt"))(fs))
	require.NoError(t, createFile(randomFile("b.tmp"))(fs))
	require.NoError(t, createFile(randomFile("build/out"))(fs))
	require.NoError(t, createReplicaFile(ignoredInReplica)(fs))

	output, err := helper.Run(context.Background(), "once", "--config", configPath)
	require.NoError(t, err, string(output))

	assert.NoError(t, shouldHaveContents("a.txt", "")(fs), "a.txt should be mirrored")
	assert.NoError(t, shouldNotExist("b.tmp")(fs))
	assert.NoError(t, shouldNotExist("build/out")(fs))
	assert.NoError(t, shouldHaveContents(ignoredInReplica.path, ignoredInReplica.contents)(fs),
		"ignored replica files should be left alone")
}

func testOnce(t *testing.T, helper *util.TestHelper) {
	fs, err := newMockFs()
	require.NoError(t, err)
	defer fs.cleanup()

	require.NoError(t, createFile(randomFile("a"))(fs))

	output, err := helper.Run(context.Background(), "once", fs.source, fs.replica,
		"--log-file", fs.logFile)
	require.NoError(t, err, string(output))
	require.NoError(t, helper.WaitUntilSynced(context.Background(), fs.source, fs.replica))

	// A replica directory is replaced when the source has a file at its path.
	require.NoError(t, createFile(randomFile("b"))(fs))
	require.NoError(t, createReplicaFile(randomFile("b/nested"))(fs))

	output, err = helper.Run(context.Background(), "once", fs.source, fs.replica,
		"--log-file", fs.logFile)
	require.NoError(t, err, string(output))
	assert.Contains(t, string(output), "Creating file: b")
	assert.Contains(t, string(output), "Deleting file: b/nested")
	assert.NoError(t, shouldHaveContents("b", "")(fs))

	_, err = helper.Run(context.Background(), "once", fs.root+"/missing", fs.replica)
	assert.Error(t, err, "missing source should be rejected")
}

func testSingleInstance(t *testing.T, helper *util.TestHelper) {
	fs, err := newMockFs()
	require.NoError(t, err)
	defer fs.cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	waitErr, err := helper.Mirror(ctx, fs.source, fs.replica, "60", fs.logFile)
	require.NoError(t, err, "start dirmirror run")
	defer func() {
		cancel()
		assert.NoError(t, <-waitErr, "run dirmirror")
	}()

	output, err := helper.Run(context.Background(), "once", fs.source, fs.replica,
		"--log-file", fs.logFile)
	assert.Error(t, err)
	assert.Contains(t, string(output), "already mirroring")
}

func shouldHaveContents(path, contents string) func(mockFs) error {
	return func(fs mockFs) error {
		actual, exists, err := getReplicaFile(fs, path)
		if err != nil {
			return errors.WithContext(err, "get replica file")
		}

		if !exists {
			return fmt.Errorf("file %q does not exist", path)
		}

		// An empty expectation only checks existence.
		if contents != "" && actual.contents != contents {
			return fmt.Errorf("expected contents %q, got %q", contents, actual.contents)
		}
		return nil
	}
}

func shouldBeUnchanged(fs mockFs, exp file) error {
	actual, exists, err := getReplicaFile(fs, exp.path)
	if err != nil {
		return errors.WithContext(err, "get replica file")
	}

	if !exists {
		return fmt.Errorf("file %q does not exist", exp.path)
	}

	if actual != exp {
		return fmt.Errorf("expected file %v, got %v", exp, actual)
	}
	return nil
}

func shouldNotExist(path string) func(mockFs) error {
	return func(fs mockFs) error {
		_, exists, err := getReplicaFile(fs, path)
		if err != nil {
			return errors.WithContext(err, "get replica file")
		}

		if exists {
			return fmt.Errorf("file %q exists", path)
		}
		return nil
	}
}
