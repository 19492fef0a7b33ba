package sha256

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKnownVector(t *testing.T) {
	t.Parallel()

	got, err := New().Hash([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
}

func TestHashStable(t *testing.T) {
	t.Parallel()

	h := New()
	a, err := h.Hash([]byte("<html>movie</html>"))
	require.NoError(t, err)
	b, err := h.Hash([]byte("<html>movie</html>"))
	require.NoError(t, err)
	c, err := h.Hash([]byte("<html>other</html>"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
