package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventSetGranted, SetID: 7})

	select {
	case ev := <-sub:
		assert.Equal(t, EventSetGranted, ev.Type)
		assert.EqualValues(t, 7, ev.SetID)
		assert.NotEmpty(t, ev.ID, "Publish stamps a correlation id when one isn't set")
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestPublishPreservesCallerSuppliedID(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventSetAdvised, ID: "caller-assigned"})

	ev := <-sub
	assert.Equal(t, "caller-assigned", ev.ID)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub
	assert.False(t, ok, "channel is closed on unsubscribe")
}
