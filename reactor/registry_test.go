package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-evloop/api"
)

func TestRegistryRejectsDuplicateInterest(t *testing.T) {
	g := newRegistry()
	in := api.Interest{FD: 7, Dir: api.Readable}

	require.NoError(t, g.register(in, func(api.Outcome) {}))
	err := g.register(in, func(api.Outcome) {})
	assert.ErrorIs(t, err, api.ErrDuplicateInterest)

	// A different direction on the same descriptor is a distinct interest.
	assert.NoError(t, g.register(api.Interest{FD: 7, Dir: api.Writable}, func(api.Outcome) {}))
}

func TestRegistryFireRemovesBeforeEnqueue(t *testing.T) {
	g := newRegistry()
	in := api.Interest{FD: 3, Dir: api.Writable}

	require.NoError(t, g.register(in, func(api.Outcome) {}))
	require.True(t, g.fire(in, api.Outcome{}))
	assert.Equal(t, 0, g.pendingLen())
	assert.Equal(t, 1, g.readyLen())

	// Firing again finds nothing: at-most-once delivery.
	assert.False(t, g.fire(in, api.Outcome{}))

	// The interest is immediately reusable.
	assert.NoError(t, g.register(in, func(api.Outcome) {}))
}

func TestRegistryCancelDropsSilently(t *testing.T) {
	g := newRegistry()
	in := api.Interest{FD: 9, Dir: api.Readable}

	require.NoError(t, g.register(in, func(api.Outcome) {}))
	assert.True(t, g.cancel(in))
	assert.False(t, g.cancel(in))
	assert.Equal(t, 0, g.readyLen(), "canceled continuation must never become ready")
}

func TestReadyQueueFIFO(t *testing.T) {
	g := newRegistry()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		g.scheduleNow(func(api.Outcome) { order = append(order, i) }, api.Outcome{})
	}
	for {
		item, ok := g.popReady()
		if !ok {
			break
		}
		item.cont(item.outcome)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
