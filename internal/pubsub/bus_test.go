package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessPublishReachesSubscribers(t *testing.T) {
	bus := NewProcess()

	var got [][]byte
	cancel, err := bus.Subscribe("rooms.abc", func(payload []byte) {
		got = append(got, payload)
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, bus.Publish(context.Background(), "rooms.abc", []byte("one")))
	require.NoError(t, bus.Publish(context.Background(), "rooms.other", []byte("two")))

	require.Len(t, got, 1)
	assert.Equal(t, []byte("one"), got[0])
}

func TestProcessUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewProcess()

	delivered := 0
	cancel, err := bus.Subscribe("rooms.abc", func([]byte) { delivered++ })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "rooms.abc", nil))
	cancel()
	require.NoError(t, bus.Publish(context.Background(), "rooms.abc", nil))

	assert.Equal(t, 1, delivered)
}

func TestProcessCloseDropsSubscriptions(t *testing.T) {
	bus := NewProcess()

	delivered := 0
	_, err := bus.Subscribe("rooms.abc", func([]byte) { delivered++ })
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Publish(context.Background(), "rooms.abc", nil))

	assert.Equal(t, 0, delivered)
}
