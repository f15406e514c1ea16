package uuid

import (
	"testing"

	guuid "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsParsableV7(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	s, err := gen.NewID()
	require.NoError(t, err)
	parsed, err := guuid.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, guuid.Version(7), parsed.Version())
}

func TestNewRawIDOrdering(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	first, err := gen.NewRawID()
	require.NoError(t, err)
	second, err := gen.NewRawID()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
