package server

import (
	"encoding/json"
	"sync"

	"github.com/playperu/scavengerbot/internal/engine"
)

// allSenders subscribes to every sender's transitions.
const allSenders = "*"

// Broker is an in-process pub/sub of conversation transitions, keyed by
// sender id.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded transitions for
// senderID, or for everyone when senderID is allSenders.
func (b *Broker) Subscribe(senderID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[senderID] == nil {
		b.subs[senderID] = make(map[chan []byte]struct{})
	}
	b.subs[senderID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(senderID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[senderID], ch)
	if len(b.subs[senderID]) == 0 {
		delete(b.subs, senderID)
	}
	b.mu.Unlock()
}

// Observe publishes t. It has the engine.Observer signature.
func (b *Broker) Observe(t engine.Transition) {
	data, _ := json.Marshal(t)
	b.mu.RLock()
	defer b.mu.RUnlock()
	b.publish(t.SenderID, data)
	b.publish(allSenders, data)
}

func (b *Broker) publish(key string, data []byte) {
	for ch := range b.subs[key] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
}
