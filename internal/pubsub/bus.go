// Package pubsub carries room-change notifications between the store
// and its subscribers, and between instances when more than one
// roombox serves the same database.
package pubsub

import (
	"context"
	"sync"
)

// Handler receives the payload of one published message.
type Handler func(payload []byte)

// Bus is a minimal publish/subscribe seam. Delivery is at-most-once
// and unordered; consumers treat every message as "something changed"
// and carry enough payload to avoid a re-read.
type Bus interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Subscribe(subject string, fn Handler) (func(), error)
	Close() error
}

// Process is an in-process Bus for single-instance deployments.
type Process struct {
	mu   sync.RWMutex
	subs map[string]map[int]Handler
	next int
}

func NewProcess() *Process {
	return &Process{subs: make(map[string]map[int]Handler)}
}

func (p *Process) Publish(_ context.Context, subject string, payload []byte) error {
	p.mu.RLock()
	handlers := make([]Handler, 0, len(p.subs[subject]))
	for _, fn := range p.subs[subject] {
		handlers = append(handlers, fn)
	}
	p.mu.RUnlock()

	for _, fn := range handlers {
		fn(payload)
	}
	return nil
}

func (p *Process) Subscribe(subject string, fn Handler) (func(), error) {
	p.mu.Lock()
	if p.subs[subject] == nil {
		p.subs[subject] = make(map[int]Handler)
	}
	id := p.next
	p.next++
	p.subs[subject][id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs[subject], id)
		if len(p.subs[subject]) == 0 {
			delete(p.subs, subject)
		}
		p.mu.Unlock()
	}, nil
}

func (p *Process) Close() error {
	p.mu.Lock()
	p.subs = make(map[string]map[int]Handler)
	p.mu.Unlock()
	return nil
}
