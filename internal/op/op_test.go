package op

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpSnapshot(t *testing.T) {
	t.Parallel()

	o := New(10, "counting", nil)
	snap := o.Snapshot()
	assert.Equal(t, 10, snap.Total)
	assert.Equal(t, 0, snap.Done)
	assert.Equal(t, -1, snap.Progress)
	assert.Equal(t, "counting", snap.Descr)
	assert.False(t, snap.Cancelled)
}

func TestOpSetDoneDerivesProgress(t *testing.T) {
	t.Parallel()

	o := New(10, "", nil)
	o.SetDone(5)
	assert.Equal(t, 50, o.Snapshot().Progress)

	o.SetDone(10)
	assert.Equal(t, 100, o.Snapshot().Progress)
}

func TestOpSetDoneNoTotalLeavesIndeterminate(t *testing.T) {
	t.Parallel()

	o := New(0, "", nil)
	o.SetDone(3)
	assert.Equal(t, -1, o.Snapshot().Progress)
}

func TestOpOnChangedFires(t *testing.T) {
	t.Parallel()

	var calls int
	o := New(10, "", func() { calls++ })

	o.SetDone(1)
	o.SetDescr("scanning")
	o.SetTotal(20)

	assert.Equal(t, 3, calls)
}

func TestOpCancelOnceTransitions(t *testing.T) {
	t.Parallel()

	o := New(1, "", nil)
	require.False(t, o.Cancelled())

	assert.True(t, o.Cancel())
	assert.True(t, o.Cancelled())
	assert.False(t, o.Cancel(), "second cancel should report no transition")
}
