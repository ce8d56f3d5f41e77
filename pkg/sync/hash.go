package sync

import (
	"crypto/sha512"
	"encoding/base64"
	"io"

	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// HashFile returns the sha512 hash of the file at the given path.
func HashFile(path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	hasher := sha512.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.WithContext(err, "read")
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}

// FilesEqual returns whether the two files have identical contents.
// Files with different sizes are never equal, so they aren't hashed.
func FilesEqual(pathA, pathB string) (bool, error) {
	infoA, err := fs.Stat(pathA)
	if err != nil {
		return false, errors.FileReadError{Path: pathA, Err: err}
	}

	infoB, err := fs.Stat(pathB)
	if err != nil {
		return false, errors.FileReadError{Path: pathB, Err: err}
	}

	if infoA.Size() != infoB.Size() {
		return false, nil
	}

	hashA, err := HashFile(pathA)
	if err != nil {
		return false, errors.FileReadError{Path: pathA, Err: err}
	}

	hashB, err := HashFile(pathB)
	if err != nil {
		return false, errors.FileReadError{Path: pathB, Err: err}
	}
	return hashA == hashB, nil
}
