package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/Seednode/roombox/internal/pubsub"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	collection text        NOT NULL,
	id         text        NOT NULL,
	code       text        NOT NULL,
	version    bigint      NOT NULL,
	expires_at timestamptz NOT NULL,
	updated_at timestamptz NOT NULL,
	data       jsonb       NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS rooms_code_idx ON rooms (collection, code);
`

// changeEvent is the bus payload for one room mutation. It carries the
// full document so subscribers on other instances do not need to
// re-read.
type changeEvent struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Version   int64           `json:"version"`
	ExpiresAt time.Time       `json:"expiresAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Data      json.RawMessage `json:"data"`
}

// Postgres is a Store backed by a single rooms table. Change
// notifications travel over the pubsub bus, so multiple instances
// sharing one database also share one subscription space.
type Postgres struct {
	pool *pgxpool.Pool
	bus  pubsub.Bus

	mu      sync.Mutex
	cancels []func()
}

func NewPostgres(ctx context.Context, url string, bus pubsub.Bus) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Postgres{pool: pool, bus: bus}, nil
}

func (p *Postgres) Create(ctx context.Context, collection string, doc Document) error {
	doc.Version = 1
	doc.UpdatedAt = time.Now()

	_, err := p.pool.Exec(ctx,
		`INSERT INTO rooms (collection, id, code, version, expires_at, updated_at, data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		collection, doc.ID, doc.Code, doc.Version, doc.ExpiresAt, doc.UpdatedAt, doc.Data,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrExists
		}
		return fmt.Errorf("insert room: %w", err)
	}

	p.publish(ctx, collection, doc)

	return nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, code, version, expires_at, updated_at, data FROM rooms
		 WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	return scanDocument(row)
}

func (p *Postgres) GetByCode(ctx context.Context, collection, code string) (Document, error) {
	// Newest match first: when a code has been reused after its
	// previous holder expired, the live room must shadow the lingering
	// expired record.
	row := p.pool.QueryRow(ctx,
		`SELECT id, code, version, expires_at, updated_at, data FROM rooms
		 WHERE collection = $1 AND code = $2
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		collection, code,
	)
	return scanDocument(row)
}

func (p *Postgres) Update(ctx context.Context, collection string, doc *Document) error {
	now := time.Now()

	tag, err := p.pool.Exec(ctx,
		`UPDATE rooms SET code = $1, version = version + 1, expires_at = $2, updated_at = $3, data = $4
		 WHERE collection = $5 AND id = $6 AND version = $7`,
		doc.Code, doc.ExpiresAt, now, doc.Data, collection, doc.ID, doc.Version,
	)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := p.Get(ctx, collection, doc.ID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrConflict
	}

	doc.Version++
	doc.UpdatedAt = now

	p.publish(ctx, collection, *doc)

	return nil
}

func (p *Postgres) Subscribe(ctx context.Context, collection, id string) (<-chan Document, func()) {
	ch := make(chan Document, subscriberBuffer)

	unsubscribe, err := p.bus.Subscribe(subjectFor(collection, id), func(payload []byte) {
		var ev changeEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Warn().Err(err).Str("collection", collection).Str("id", id).
				Msg("ROOMS: Discarding malformed change event")
			return
		}
		select {
		case ch <- Document{
			ID:        ev.ID,
			Code:      ev.Code,
			Version:   ev.Version,
			ExpiresAt: ev.ExpiresAt,
			UpdatedAt: ev.UpdatedAt,
			Data:      ev.Data,
		}:
		default:
		}
	})
	if err != nil {
		log.Error().Err(err).Str("collection", collection).Str("id", id).
			Msg("ROOMS: Subscription failed")
		close(ch)
		return ch, func() {}
	}

	// Seed the subscriber with the current state, if any.
	if doc, err := p.Get(ctx, collection, id); err == nil {
		ch <- doc
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsubscribe()
			close(ch)
		})
	}

	p.mu.Lock()
	p.cancels = append(p.cancels, cancel)
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel
}

func (p *Postgres) Close() error {
	p.mu.Lock()
	cancels := p.cancels
	p.cancels = nil
	p.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	p.pool.Close()
	return nil
}

func (p *Postgres) publish(ctx context.Context, collection string, doc Document) {
	payload, err := json.Marshal(changeEvent{
		ID:        doc.ID,
		Code:      doc.Code,
		Version:   doc.Version,
		ExpiresAt: doc.ExpiresAt,
		UpdatedAt: doc.UpdatedAt,
		Data:      doc.Data,
	})
	if err != nil {
		log.Error().Err(err).Str("id", doc.ID).Msg("ROOMS: Encoding change event failed")
		return
	}

	if err := p.bus.Publish(ctx, subjectFor(collection, doc.ID), payload); err != nil {
		// Subscribers on other instances miss this update; the next
		// successful publish carries the full document again.
		log.Warn().Err(err).Str("id", doc.ID).Msg("ROOMS: Publishing change event failed")
	}
}

func subjectFor(collection, id string) string {
	return "roombox.rooms." + collection + "." + id
}

func scanDocument(row pgx.Row) (Document, error) {
	var doc Document
	err := row.Scan(&doc.ID, &doc.Code, &doc.Version, &doc.ExpiresAt, &doc.UpdatedAt, &doc.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("scan room: %w", err)
	}
	return doc, nil
}
