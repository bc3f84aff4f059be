// Package store abstracts the document database that holds room state.
//
// Every room lives in one Document whose Data field carries the
// variant-specific payload. Writers perform optimistic-concurrency
// updates keyed on Version; readers and subscribers always receive
// the full current document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("store: document not found")
	ErrExists   = errors.New("store: document already exists")
	ErrConflict = errors.New("store: version conflict")
)

// Document is a single room record. ExpiresAt lives on the envelope
// so read paths can apply the lifetime filter without decoding the
// variant payload; expired records are filtered, never deleted.
type Document struct {
	ID        string
	Code      string // secondary lookup key, always uppercase
	Version   int64  // incremented on every successful update
	ExpiresAt time.Time
	UpdatedAt time.Time
	Data      json.RawMessage
}

// Store is the seam between the room services and whatever database
// backs them. Implementations must provide per-document compare-and-swap
// semantics for Update and push the full document to subscribers on
// every change.
type Store interface {
	// Create persists a new document. ErrExists if the id is taken.
	Create(ctx context.Context, collection string, doc Document) error

	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// GetByCode returns the most recently updated document whose Code
	// matches, or ErrNotFound. Codes are only unique among live rooms;
	// duplicates among expired records are tolerated and the newest
	// match wins, so a reused code resolves to its current holder.
	GetByCode(ctx context.Context, collection, code string) (Document, error)

	// Update stores doc if and only if the persisted version equals
	// doc.Version, then increments doc.Version in place. A stale
	// version returns ErrConflict and leaves the record untouched.
	Update(ctx context.Context, collection string, doc *Document) error

	// Subscribe delivers the full document on every change until the
	// returned cancel func is called or ctx is done. Slow consumers
	// may have updates dropped; each delivered document is complete,
	// so a dropped intermediate state is recovered by the next one.
	Subscribe(ctx context.Context, collection, id string) (<-chan Document, func())

	Close() error
}
