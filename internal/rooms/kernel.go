// Package rooms is the shared kernel behind every game variant:
// collision-checked room codes, capability tokens, the 12-hour
// lifetime filter, and optimistic-concurrency mutation of room
// documents.
package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Seednode/roombox/internal/store"
)

const (
	// DefaultTTL is the fixed room lifetime from creation.
	DefaultTTL = 12 * time.Hour

	createAttempts = 10
	mutateRetries  = 5
)

// Meta describes the identity assigned to a room at creation time.
type Meta struct {
	ID        string
	Code      string
	Now       time.Time
	ExpiresAt time.Time
}

// Kernel ties a store, a clock, and the room lifetime together.
// One Kernel serves all variants; each variant brings its own
// collection name and payload shape.
type Kernel struct {
	Store store.Store
	Clock clockwork.Clock
	TTL   time.Duration

	// NewCode generates candidate room codes. Overridable so tests
	// can force collisions.
	NewCode func(alphabet string) string
}

func NewKernel(st store.Store, clock clockwork.Clock, ttl time.Duration) *Kernel {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Kernel{
		Store:   st,
		Clock:   clock,
		TTL:     ttl,
		NewCode: NewCode,
	}
}

func (k *Kernel) Now() time.Time {
	return k.Clock.Now()
}

func (k *Kernel) live(doc store.Document) bool {
	return doc.ExpiresAt.After(k.Clock.Now())
}

// Create allocates a collision-checked code and persists a fresh room.
// A candidate code is probed against live rooms in the collection;
// expired records do not block reuse. After createAttempts failed
// probes the create is abandoned rather than risking a live duplicate.
func (k *Kernel) Create(ctx context.Context, collection, alphabet string, build func(meta Meta) (json.RawMessage, error)) (store.Document, error) {
	var code string

	found := false
	for attempt := 0; attempt < createAttempts; attempt++ {
		candidate := k.NewCode(alphabet)

		existing, err := k.Store.GetByCode(ctx, collection, candidate)
		switch {
		case errors.Is(err, store.ErrNotFound):
			code = candidate
			found = true
		case err != nil:
			return store.Document{}, err
		case !k.live(existing):
			// The previous holder expired; its record lingers but no
			// longer claims the code.
			code = candidate
			found = true
		}
		if found {
			break
		}
	}
	if !found {
		return store.Document{}, ErrCodeSpace
	}

	now := k.Clock.Now()
	meta := Meta{
		ID:        NewRoomID(),
		Code:      code,
		Now:       now,
		ExpiresAt: now.Add(k.TTL),
	}

	data, err := build(meta)
	if err != nil {
		return store.Document{}, err
	}

	doc := store.Document{
		ID:        meta.ID,
		Code:      meta.Code,
		ExpiresAt: meta.ExpiresAt,
		Data:      data,
	}

	if err := k.Store.Create(ctx, collection, doc); err != nil {
		return store.Document{}, err
	}
	doc.Version = 1

	log.Info().Str("collection", collection).Str("id", doc.ID).Str("code", doc.Code).
		Msg("ROOMS: Created room")

	return doc, nil
}

// Get returns the room with the given id. Expired rooms report
// ErrNotFound even though the record persists.
func (k *Kernel) Get(ctx context.Context, collection, id string) (store.Document, error) {
	doc, err := k.Store.Get(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Document{}, ErrNotFound
	}
	if err != nil {
		return store.Document{}, err
	}
	if !k.live(doc) {
		return store.Document{}, ErrNotFound
	}
	return doc, nil
}

// GetByCode resolves a human-entered code, case-insensitively, with
// the same expiry-as-NotFound rule as Get.
func (k *Kernel) GetByCode(ctx context.Context, collection, code string) (store.Document, error) {
	doc, err := k.Store.GetByCode(ctx, collection, strings.ToUpper(code))
	if errors.Is(err, store.ErrNotFound) {
		return store.Document{}, ErrNotFound
	}
	if err != nil {
		return store.Document{}, err
	}
	if !k.live(doc) {
		return store.Document{}, ErrNotFound
	}
	return doc, nil
}

// Mutate runs a read-validate-modify-write cycle against the room,
// retrying on version conflicts so concurrent writers never silently
// lose each other's updates. fn receives the current payload and
// returns the replacement.
func (k *Kernel) Mutate(ctx context.Context, collection, id string, fn func(data json.RawMessage) (json.RawMessage, error)) (store.Document, error) {
	var lastErr error

	for attempt := 0; attempt < mutateRetries; attempt++ {
		doc, err := k.Get(ctx, collection, id)
		if err != nil {
			return store.Document{}, err
		}

		data, err := fn(doc.Data)
		if err != nil {
			return store.Document{}, err
		}
		doc.Data = data

		err = k.Store.Update(ctx, collection, &doc)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return store.Document{}, err
		}
		lastErr = err
	}

	log.Warn().Str("collection", collection).Str("id", id).
		Msg("ROOMS: Mutation retries exhausted")

	return store.Document{}, lastErr
}

// Subscribe streams the room until it expires or the subscription is
// cancelled. Completed rooms are still delivered; already-joined
// participants must see the completion event. An expired room closes
// the stream, matching the NotFound read behavior.
func (k *Kernel) Subscribe(ctx context.Context, collection, id string) (<-chan store.Document, func()) {
	in, cancel := k.Store.Subscribe(ctx, collection, id)
	out := make(chan store.Document, subscriberBuffer)

	go func() {
		defer close(out)
		for doc := range in {
			if !k.live(doc) {
				cancel()
				return
			}
			select {
			case out <- doc:
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()

	return out, cancel
}

const subscriberBuffer = 16
