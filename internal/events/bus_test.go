package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusFanOut(t *testing.T) {
	t.Parallel()
	b := NewBus()
	a := b.Subscribe()
	c := b.Subscribe()

	evt := New(TypeTradeClosed, 7, map[string]int{"trade_id": 1})
	b.Publish(evt)

	got := <-a
	assert.Equal(t, evt.ID, got.ID)
	assert.Equal(t, int64(7), got.AccountID)
	got = <-c
	assert.Equal(t, TypeTradeClosed, got.Type)
}

func TestBusDropsWhenFullAndUnsubscribeCloses(t *testing.T) {
	t.Parallel()
	b := NewBus()
	ch := b.Subscribe()
	for i := 0; i < subscriberBufferSize+10; i++ {
		b.Publish(New(TypeTradeOpened, 1, nil))
	}
	assert.Len(t, ch, subscriberBufferSize)

	b.Unsubscribe(ch)
	b.Unsubscribe(ch)
	for range ch {
	}
	_, ok := <-ch
	assert.False(t, ok)
}

func TestNewAssignsSortableIDs(t *testing.T) {
	t.Parallel()
	first := New(TypeTradeOpened, 1, nil)
	second := New(TypeTradeOpened, 1, nil)
	require.NotEqual(t, first.ID, second.ID)
	assert.Len(t, first.ID, 26)
}
