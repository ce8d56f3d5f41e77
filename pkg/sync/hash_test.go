package sync

import (
	"crypto/sha512"
	"encoding/base64"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/dirmirror/pkg/errors"
)

func TestHashFile(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/file", []byte("hello"), 0644))

	expSum := sha512.Sum512([]byte("hello"))
	hash, err := HashFile("/file")
	assert.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(expSum[:]), hash)

	_, err = HashFile("/missing")
	assert.Error(t, err)
}

func TestFilesEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expEqual bool
	}{
		{
			name:     "Identical",
			a:        "hello",
			b:        "hello",
			expEqual: true,
		},
		{
			name:     "Empty",
			expEqual: true,
		},
		{
			name:     "SameSizeDifferentContents",
			a:        "hello",
			b:        "jello",
			expEqual: false,
		},
		{
			name:     "DifferentSize",
			a:        "hello",
			b:        "goodbye",
			expEqual: false,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/a", []byte(test.a), 0644))
			require.NoError(t, afero.WriteFile(fs, "/b", []byte(test.b), 0644))

			equal, err := FilesEqual("/a", "/b")
			assert.NoError(t, err)
			assert.Equal(t, test.expEqual, equal)
		})
	}
}

func TestFilesEqualMissing(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a", []byte("hello"), 0644))

	_, err := FilesEqual("/a", "/missing")
	readErr, ok := errors.RootCause(err).(errors.FileReadError)
	require.True(t, ok, "unexpected error: %v", err)
	assert.Equal(t, "/missing", readErr.Path)

	_, err = FilesEqual("/missing", "/a")
	readErr, ok = errors.RootCause(err).(errors.FileReadError)
	require.True(t, ok, "unexpected error: %v", err)
	assert.Equal(t, "/missing", readErr.Path)
}
