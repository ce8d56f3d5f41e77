package sync

import (
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// Scan returns the paths of all regular files under root, relative to root
// and slash-separated. Files and directories matched by `ignore` are skipped.
//
// Entries that disappear while the tree is being walked are skipped, since
// the tree may be modified concurrently. If the root itself can't be read,
// or disappears during the walk, Scan returns an errors.RootUnavailable.
func Scan(root string, ignore *IgnoreList) ([]string, error) {
	files, _, err := scanTree(root, ignore)
	return files, err
}

// scanTree is Scan, but also returns the entries that are neither regular
// files nor directories, such as symlinks. Symlinks aren't followed.
func scanTree(root string, ignore *IgnoreList) (files, others []string, err error) {
	if err := checkRoot(root); err != nil {
		return nil, nil, err
	}

	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			if path != root && os.IsNotExist(err) {
				log.WithField("path", path).Debug("File disappeared during scan")
				return nil
			}
			return err
		}

		if path == root {
			return nil
		}

		relativePath, err := relativeTo(root, path)
		if err != nil {
			return err
		}

		if fi.IsDir() {
			if ignore.shouldIgnoreDir(relativePath) {
				return filepath.SkipDir
			}
			return nil
		}

		if ignore.ShouldIgnore(relativePath) {
			return nil
		}

		if fi.Mode().IsRegular() {
			files = append(files, relativePath)
		} else {
			others = append(others, relativePath)
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.RootUnavailable{Path: root, Err: err}
	}

	// Catch roots that were removed after the walk started. Otherwise the
	// pass would treat every file as deleted.
	if err := checkRoot(root); err != nil {
		return nil, nil, err
	}
	return files, others, nil
}

func checkRoot(root string) error {
	fi, err := fs.Stat(root)
	if err != nil {
		return errors.RootUnavailable{Path: root, Err: err}
	}

	if !fi.IsDir() {
		return errors.RootUnavailable{Path: root, Err: errors.New("not a directory")}
	}
	return nil
}

// relativeTo returns `path` relative to `root`, using forward slashes.
func relativeTo(root, path string) (string, error) {
	relativePath, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(relativePath, "..") {
		// This shouldn't happen because `path` is always a child of `root`.
		if err == nil {
			err = errors.New("%q is not within %q", path, root)
		}
		return "", errors.WithContext(err, "normalized path")
	}
	return filepath.ToSlash(relativePath), nil
}

// absolutePath converts a relative path produced by Scan back into a path
// under `root`.
func absolutePath(root, relativePath string) string {
	return filepath.Join(root, filepath.FromSlash(relativePath))
}

// lstat is fs.Lstat if the filesystem supports it, and fs.Stat otherwise.
func lstat(path string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		fi, _, err := lstater.LstatIfPossible(path)
		return fi, err
	}
	return fs.Stat(path)
}
