package sync

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// replicaFileMode is the mode given to files written into the replica.
// File metadata isn't mirrored.
const replicaFileMode os.FileMode = 0644

// tempFilePrefix marks partially written replica files. Leftovers from a
// crashed pass only exist in the replica, so the next pass removes them.
const tempFilePrefix = ".dirmirror-tmp-"

// Variables mocked for unit testing.
var (
	copyFile   = copyFileImpl
	removeFile = removeFileImpl
	filesEqual = FilesEqual
)

// copyFileImpl copies src to dst and returns the number of bytes copied.
// The contents are staged in a temporary file next to dst and renamed into
// place, so dst either has the old or the new contents, never a mix.
func copyFileImpl(src, dst string) (int64, error) {
	dstParent := filepath.Dir(dst)
	dstParentExists, err := afero.DirExists(fs, dstParent)
	if err != nil {
		return 0, errors.DirectoryCreateError{Path: dstParent, Err: err}
	}

	if !dstParentExists {
		if err := fs.MkdirAll(dstParent, 0755); err != nil {
			return 0, errors.DirectoryCreateError{Path: dstParent, Err: err}
		}
	}

	srcFile, err := fs.Open(src)
	if err != nil {
		return 0, errors.FileReadError{Path: src, Err: err}
	}
	defer srcFile.Close()

	tmpFile, err := afero.TempFile(fs, dstParent, tempFilePrefix)
	if err != nil {
		return 0, errors.FileWriteError{Path: dst, Err: errors.WithContext(err, "create staging file")}
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if success {
			return
		}
		tmpFile.Close()
		if err := fs.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("path", tmpPath).Warn(
				"Failed to clean up staging file. It will be removed by the next pass.")
		}
	}()

	n, err := io.Copy(tmpFile, srcFile)
	if err != nil {
		return 0, errors.FileWriteError{Path: dst, Err: errors.WithContext(err, "copy")}
	}

	if err := tmpFile.Close(); err != nil {
		return 0, errors.FileWriteError{Path: dst, Err: errors.WithContext(err, "close staging file")}
	}

	if err := fs.Chmod(tmpPath, replicaFileMode); err != nil {
		return 0, errors.FileWriteError{Path: dst, Err: errors.WithContext(err, "set file mode")}
	}

	// A directory at dst has no counterpart in the source, since the source
	// has a file at that path.
	if fi, err := lstat(dst); err == nil && fi.IsDir() {
		if err := fs.RemoveAll(dst); err != nil {
			return 0, errors.FileWriteError{Path: dst, Err: errors.WithContext(err, "remove directory")}
		}
	}

	if err := fs.Rename(tmpPath, dst); err != nil {
		return 0, errors.FileWriteError{Path: dst, Err: errors.WithContext(err, "rename")}
	}

	success = true
	return n, nil
}

// removeFileImpl removes the file or symlink at path. A file that's already
// gone isn't an error. That includes a file that was replaced by a directory,
// or whose parent was replaced by a file, while creating files earlier in
// the pass.
func removeFileImpl(path string) error {
	fi, err := lstat(path)
	switch {
	case err != nil && (os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR)):
		return nil
	case err != nil:
		return errors.FileWriteError{Path: path, Err: err}
	case fi.IsDir():
		return nil
	}

	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.FileWriteError{Path: path, Err: err}
	}
	return nil
}

// ensureParents creates the directories leading to the file at
// `relativePath` under root. Entries in the way that aren't directories,
// such as files or symlinks, are removed first so that nothing is written
// outside of root.
func ensureParents(root, relativePath string) error {
	parent := path.Dir(relativePath)
	if parent == "." {
		return nil
	}

	dir := root
	for _, name := range strings.Split(parent, "/") {
		dir = filepath.Join(dir, name)

		fi, err := lstat(dir)
		switch {
		case err == nil && fi.IsDir():
			continue
		case err == nil:
			log.WithField("path", dir).Debug("Replacing non-directory in replica")
			if err := fs.Remove(dir); err != nil {
				return errors.DirectoryCreateError{Path: dir, Err: errors.WithContext(err, "remove")}
			}
		case !os.IsNotExist(err):
			return errors.DirectoryCreateError{Path: dir, Err: err}
		}

		if err := fs.Mkdir(dir, 0755); err != nil {
			return errors.DirectoryCreateError{Path: dir, Err: err}
		}
	}
	return nil
}
