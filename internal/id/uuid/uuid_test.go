package uuid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunIDIsOrderedAndUnique(t *testing.T) {
	t.Parallel()

	ids := New()
	first, err := ids.NewRunID()
	require.NoError(t, err)
	second, err := ids.NewRunID()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.LessOrEqual(t, first, second, "later runs sort after earlier ones")

	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}
