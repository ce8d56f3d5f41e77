package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/dirmirror/pkg/errors"
)

func TestPathFor(t *testing.T) {
	assert.Equal(t, "/backup/photos.dirmirror.lock", PathFor("/backup/photos/"))
	assert.Equal(t, "replica.dirmirror.lock", PathFor("./replica"))
}

func TestAcquire(t *testing.T) {
	replica := filepath.Join(t.TempDir(), "replica")

	first, err := Acquire(replica)
	require.NoError(t, err)
	assert.Equal(t, PathFor(replica), first.Path())

	// flock locks are per file descriptor, so a second handle within the same
	// process conflicts just like another process would.
	_, err = Acquire(replica)
	_, ok := err.(errors.FriendlyError)
	assert.True(t, ok, "unexpected error: %v", err)

	require.NoError(t, first.Release())

	second, err := Acquire(replica)
	require.NoError(t, err)
	assert.NoError(t, second.Release())
}
