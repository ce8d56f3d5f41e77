package sync

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// recorder is an EventSink that remembers every event.
type recorder struct {
	events []Event
}

func (r *recorder) Emit(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) types() (types []EventType) {
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

func (r *recorder) paths(t EventType) (paths []string) {
	for _, e := range r.events {
		if e.Type == t {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

// writeTree creates the given files, keyed by slash-separated path relative
// to root.
func writeTree(t *testing.T, root string, files map[string]string) {
	require.NoError(t, fs.MkdirAll(root, 0755))
	for path, contents := range files {
		absPath := absolutePath(root, path)
		require.NoError(t, fs.MkdirAll(filepath.Dir(absPath), 0755))
		require.NoError(t, afero.WriteFile(fs, absPath, []byte(contents), 0644))
	}
}

// readTree returns the contents of every file under root.
func readTree(t *testing.T, root string) map[string]string {
	paths, err := Scan(root, nil)
	require.NoError(t, err)

	files := map[string]string{}
	for _, path := range paths {
		contents, err := afero.ReadFile(fs, absolutePath(root, path))
		require.NoError(t, err)
		files[path] = string(contents)
	}
	return files
}

func modTime(t *testing.T, path string) time.Time {
	fi, err := fs.Stat(path)
	require.NoError(t, err)
	return fi.ModTime()
}

// faultyFs rejects all writes to paths under `prefix`. Reads are passed
// through.
type faultyFs struct {
	afero.Fs
	prefix string
}

func (f faultyFs) denied(name string) bool {
	return strings.HasPrefix(filepath.Clean(name), f.prefix)
}

func (f faultyFs) permissionErr(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: os.ErrPermission}
}

func (f faultyFs) Create(name string) (afero.File, error) {
	if f.denied(name) {
		return nil, f.permissionErr("open", name)
	}
	return f.Fs.Create(name)
}

func (f faultyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE) != 0 && f.denied(name) {
		return nil, f.permissionErr("open", name)
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f faultyFs) Mkdir(name string, perm os.FileMode) error {
	if f.denied(name) {
		return f.permissionErr("mkdir", name)
	}
	return f.Fs.Mkdir(name, perm)
}

func (f faultyFs) MkdirAll(path string, perm os.FileMode) error {
	if f.denied(path) {
		return f.permissionErr("mkdir", path)
	}
	return f.Fs.MkdirAll(path, perm)
}

func (f faultyFs) Remove(name string) error {
	if f.denied(name) {
		return f.permissionErr("remove", name)
	}
	return f.Fs.Remove(name)
}

func (f faultyFs) Rename(oldname, newname string) error {
	if f.denied(newname) {
		return f.permissionErr("rename", newname)
	}
	return f.Fs.Rename(oldname, newname)
}
