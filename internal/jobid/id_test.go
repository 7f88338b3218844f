package jobid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDHasJobPrefix(t *testing.T) {
	t.Parallel()

	id, err := New()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id.String(), "job_"))
}

func TestNewIDsAreUnique(t *testing.T) {
	t.Parallel()

	a, err := New()
	require.NoError(t, err)
	b, err := New()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "COMMAND", Command.String())
	assert.Equal(t, "TASK", Task.String())
	assert.Equal(t, "OPERATION", Operation.String())
}
