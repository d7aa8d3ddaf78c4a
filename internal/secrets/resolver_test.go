package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvResolver(t *testing.T) {
	t.Setenv("SCOUTER_LINE_CHANNEL_TOKEN", "tok-1")

	r := NewEnvResolver("SCOUTER")
	v, err := r.Resolve("line-channel-token")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", v)
}

func TestEnvResolverCaches(t *testing.T) {
	t.Setenv("SECRET_A", "first")

	r := NewEnvResolver("")
	v, err := r.Resolve("secret_a")
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	// Later env changes are not observed.
	t.Setenv("SECRET_A", "second")
	v, err = r.Resolve("secret_a")
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestEnvResolverMissing(t *testing.T) {
	r := NewEnvResolver("SCOUTER")
	_, err := r.Resolve("definitely-not-set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCOUTER_DEFINITELY_NOT_SET")
}

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{"a": "1"}
	v, err := r.Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	_, err = r.Resolve("b")
	require.Error(t, err)
}
