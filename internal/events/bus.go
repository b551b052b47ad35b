package events

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	TypeTradeOpened        = "trade.opened"
	TypeTradeClosed        = "trade.closed"
	TypeTradeSettled       = "trade.settled"
	TypeTradeOutcomeForced = "trade.outcome_forced"
	TypeAccountAdjusted    = "account.adjusted"
)

const subscriberBufferSize = 100

type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	AccountID int64     `json:"account_id"`
	At        time.Time `json:"at"`
	Data      any       `json:"data"`
}

func New(typ string, accountID int64, data any) Event {
	return Event{
		ID:        ulid.Make().String(),
		Type:      typ,
		AccountID: accountID,
		At:        time.Now().UTC(),
		Data:      data,
	}
}

// Bus fans events out to subscribers. A full subscriber buffer drops the
// event for that subscriber only.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, subscriberBufferSize)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.RUnlock()
}
