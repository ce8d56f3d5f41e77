package sync

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sidkik/dirmirror/pkg/config"
	"github.com/sidkik/dirmirror/pkg/errors"
)

type file struct {
	path     string
	contents string
	mode     os.FileMode
	modTime  time.Time
}

func (f file) WithContents(contents string) file {
	f.contents = contents
	return f
}

func (f file) WithMode(mode os.FileMode) file {
	f.mode = mode
	return f
}

func (f file) WithModTime(modTime time.Time) file {
	f.modTime = modTime
	return f
}

func randomFile(path string) file {
	randomTime := time.Date(2019, 11, 10, rand.Intn(23), rand.Intn(59), rand.Intn(59), 0, time.UTC)
	return file{
		path:     path,
		contents: strconv.Itoa(rand.Int()),
		mode:     os.FileMode(0640 | rand.Intn(8)),
		modTime:  randomTime,
	}
}

// mockFs contains helper methods for creating temporary source and replica
// folders for testing.
type mockFs struct {
	root    string
	source  string
	replica string
	logFile string
}

type fsOp func(mockFs) error

func newMockFs() (mockFs, error) {
	root, err := os.MkdirTemp("", "dirmirror-ci")
	if err != nil {
		return mockFs{}, errors.WithContext(err, "make root dir")
	}

	source := filepath.Join(root, "source")
	if err := os.Mkdir(source, 0755); err != nil {
		return mockFs{}, errors.WithContext(err, "make source directory")
	}

	return mockFs{
		root:    root,
		source:  source,
		replica: filepath.Join(root, "replica"),
		logFile: filepath.Join(root, "dirmirror.log"),
	}, nil
}

func (fs mockFs) cleanup() error {
	return os.RemoveAll(fs.root)
}

func (fs mockFs) sourcePath(path string) string {
	return filepath.Join(fs.source, filepath.FromSlash(path))
}

func (fs mockFs) replicaPath(path string) string {
	return filepath.Join(fs.replica, filepath.FromSlash(path))
}

// writeConfig writes a mirror config for the mock folders, and returns its
// path.
func (fs mockFs) writeConfig(cfg config.Mirror) (string, error) {
	cfg.Source = fs.source
	cfg.Replica = fs.replica
	cfg.LogFile = fs.logFile

	path := filepath.Join(fs.root, "dirmirror.yaml")
	return path, config.WriteMirror(path, cfg)
}

func createFile(toCreate file) fsOp {
	return func(fs mockFs) error {
		return writeFile(fs.sourcePath(toCreate.path), toCreate)
	}
}

func createReplicaFile(toCreate file) fsOp {
	return func(fs mockFs) error {
		return writeFile(fs.replicaPath(toCreate.path), toCreate)
	}
}

func writeFile(path string, toCreate file) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithContext(err, "make parent")
	}

	if err := os.WriteFile(path, []byte(toCreate.contents), toCreate.mode); err != nil {
		return errors.WithContext(err, "write")
	}

	if err := os.Chmod(path, toCreate.mode); err != nil {
		return errors.WithContext(err, "chmod")
	}

	if err := os.Chtimes(path, time.Now(), toCreate.modTime); err != nil {
		return errors.WithContext(err, "chtimes")
	}
	return nil
}

func removeFile(f string) fsOp {
	return func(fs mockFs) error {
		return os.Remove(fs.sourcePath(f))
	}
}

// getReplicaFile returns the file at `path` in the replica, and whether it
// exists.
func getReplicaFile(fs mockFs, path string) (file, bool, error) {
	fullPath := fs.replicaPath(path)
	info, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		return file{}, false, nil
	}
	if err != nil {
		return file{}, false, errors.WithContext(err, "stat")
	}

	if !info.Mode().IsRegular() {
		return file{}, false, fmt.Errorf("%q is not a regular file", path)
	}

	contents, err := os.ReadFile(fullPath)
	if err != nil {
		return file{}, false, errors.WithContext(err, "read")
	}

	return file{
		path:     path,
		contents: string(contents),
		mode:     info.Mode().Perm(),
		modTime:  info.ModTime().UTC(),
	}, true, nil
}
