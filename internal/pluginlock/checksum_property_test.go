package pluginlock

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// The checksum changes if and only if the lockfile bytes change.
func TestSHA256Checksum_PropertyBased_TracksBytes(t *testing.T) {
	lock, err := New(testProject(t), testPlugin("meltanolabs"))
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		first := rapid.SliceOf(rapid.Byte()).Draw(rt, "first")
		second := rapid.SliceOf(rapid.Byte()).Draw(rt, "second")

		require.NoError(rt, os.WriteFile(lock.Path, first, 0o644))
		before, err := lock.SHA256Checksum()
		require.NoError(rt, err)

		unchanged, err := lock.SHA256Checksum()
		require.NoError(rt, err)
		assert.Equal(rt, before, unchanged, "unmodified file must hash the same")

		require.NoError(rt, os.WriteFile(lock.Path, second, 0o644))
		after, err := lock.SHA256Checksum()
		require.NoError(rt, err)

		if bytes.Equal(first, second) {
			assert.Equal(rt, before, after)
		} else {
			assert.NotEqual(rt, before, after)
		}
	})
}

func TestBlake3_PropertyBased_TracksBytes(t *testing.T) {
	path := t.TempDir() + "/x.lock.json"

	rapid.Check(t, func(rt *rapid.T) {
		first := rapid.SliceOf(rapid.Byte()).Draw(rt, "first")
		second := rapid.SliceOf(rapid.Byte()).Draw(rt, "second")

		require.NoError(rt, os.WriteFile(path, first, 0o644))
		before, err := ComputeBlake3Hash(path)
		require.NoError(rt, err)

		require.NoError(rt, os.WriteFile(path, second, 0o644))
		after, err := ComputeBlake3Hash(path)
		require.NoError(rt, err)

		assert.Equal(rt, bytes.Equal(first, second), before == after)
	})
}
