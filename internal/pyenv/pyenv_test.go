package pyenv

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("3.9")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 3, Minor: 9}, v)
	assert.Equal(t, "3.9", v.String())

	v, err = ParseVersion("3.11")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 3, Minor: 11}, v)

	for _, bad := range []string{"", "3", "three.nine", "3.x"} {
		_, err := ParseVersion(bad)
		require.Error(t, err, bad)
	}
}

func TestVersionIsZero(t *testing.T) {
	assert.True(t, Version{}.IsZero())
	assert.False(t, Version{Major: 3, Minor: 9}.IsZero())
}

func TestFind_MissingVersionedBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := Find(Version{Major: 3, Minor: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "python3.4")
}

func TestProbeAndStdlibModules(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not on PATH")
	}
	interp, err := Find(Version{})
	require.NoError(t, err)

	info, err := interp.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, info.Version[0])
	assert.NotEmpty(t, info.Platform)
	assert.Positive(t, info.Maxsize)

	mods, err := interp.StdlibModules(context.Background())
	require.NoError(t, err)
	assert.Contains(t, mods, "json")
	assert.NotContains(t, mods, "antigravity")
}
