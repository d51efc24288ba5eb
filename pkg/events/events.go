// Package events implements the post-commit fan-out channel spec.md §9
// recommends in place of a live observer collection: subscribers
// register at construction and receive change deltas only after a
// transaction commits, never mid-transaction.
package events

import "github.com/modforge/modforge/pkg/model"

// ModActivationChanged is emitted once per commit that changed a mod's
// active/staged state.
type ModActivationChanged struct {
	ModKey model.ModKey
	Active bool
}

// Bus fans a committed change out to every subscriber registered at
// construction. It never blocks a transaction: Publish is expected to
// be called only after commit, and each subscriber channel is buffered
// so a slow reader cannot stall the publisher.
type Bus struct {
	subscribers []chan ModActivationChanged
}

// NewBus returns a Bus with no subscribers; each caller registers its
// own buffered channel via Subscribe.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new buffered channel and returns it. Per
// spec.md §9, subscribers must register at construction, before any
// transaction commits — Subscribe itself does not enforce this, but
// callers should treat post-startup subscription as unsupported.
func (b *Bus) Subscribe(buffer int) <-chan ModActivationChanged {
	ch := make(chan ModActivationChanged, buffer)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Publish fans out event to every subscriber. Full channels drop the
// event rather than block, since event delivery is best-effort status
// notification, not a durability guarantee — the ledger and VMA state
// on disk are the source of truth.
func (b *Bus) Publish(event ModActivationChanged) {
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
