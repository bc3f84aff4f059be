package store

import (
	"context"
	"sync"
	"time"
)

const subscriberBuffer = 16

// Memory is an in-process Store, the default when no database is
// configured. Suitable for a single instance; rooms do not survive
// a restart.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document        // collection -> id -> doc
	subs map[string]map[chan Document]struct{} // collection/id -> subscribers
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]map[string]Document),
		subs: make(map[string]map[chan Document]struct{}),
	}
}

func (m *Memory) Create(_ context.Context, collection string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.docs[collection]
	if !ok {
		coll = make(map[string]Document)
		m.docs[collection] = coll
	}

	if _, ok := coll[doc.ID]; ok {
		return ErrExists
	}

	doc.Version = 1
	doc.UpdatedAt = time.Now()
	coll[doc.ID] = doc

	m.notifyLocked(collection, doc)

	return nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *Memory) GetByCode(_ context.Context, collection, code string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Linear scan; room counts are small and codes are only a
	// discovery convenience. Newest match wins: when a code has been
	// reused after its previous holder expired, the live room must
	// shadow the lingering expired record.
	var (
		found bool
		match Document
	)
	for _, doc := range m.docs[collection] {
		if doc.Code != code {
			continue
		}
		if !found || doc.UpdatedAt.After(match.UpdatedAt) {
			match = doc
			found = true
		}
	}
	if !found {
		return Document{}, ErrNotFound
	}
	return match, nil
}

func (m *Memory) Update(_ context.Context, collection string, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.docs[collection]
	current, ok := coll[doc.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != doc.Version {
		return ErrConflict
	}

	doc.Version++
	doc.UpdatedAt = time.Now()
	coll[doc.ID] = *doc

	m.notifyLocked(collection, *doc)

	return nil
}

func (m *Memory) Subscribe(ctx context.Context, collection, id string) (<-chan Document, func()) {
	key := collection + "/" + id
	ch := make(chan Document, subscriberBuffer)

	m.mu.Lock()
	if m.subs[key] == nil {
		m.subs[key] = make(map[chan Document]struct{})
	}
	m.subs[key][ch] = struct{}{}

	// Deliver the current state immediately so new subscribers do not
	// wait for the next mutation.
	if doc, ok := m.docs[collection][id]; ok {
		ch <- doc
	}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			if set, ok := m.subs[key]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(m.subs, key)
				}
			}
			m.mu.Unlock()
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, set := range m.subs {
		for ch := range set {
			close(ch)
		}
		delete(m.subs, key)
	}
	return nil
}

// notifyLocked fans the new document out to subscribers. Full consumers
// are skipped rather than blocked on.
func (m *Memory) notifyLocked(collection string, doc Document) {
	for ch := range m.subs[collection+"/"+doc.ID] {
		select {
		case ch <- doc:
		default:
		}
	}
}
