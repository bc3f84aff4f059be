package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Seednode/roombox/internal/reveal"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsEnvelope is one frame pushed to a subscribed client: either the
// full room document, a staged reveal event, or a terminal "gone"
// marker once the room expires.
type wsEnvelope struct {
	Type   string          `json:"type"` // "room", "reveal", "gone"
	Room   json.RawMessage `json:"room,omitempty"`
	Reveal *reveal.Event   `json:"reveal,omitempty"`
}

// roomStream adapts one variant's subscription to the shared pump.
type roomStream struct {
	// updates yields the marshaled room on every change; closed when
	// the room expires.
	updates <-chan json.RawMessage
	cancel  func()

	// sequencer returns the reveal sequence for a newly-completed
	// room, or nil for variants without a staged reveal. Called at
	// most once per connection: a reconnect replays the reveal from
	// scratch over the same frozen content.
	sequencer func(room json.RawMessage) *reveal.Sequencer

	// completed reports whether this room snapshot is frozen.
	completed func(room json.RawMessage) bool
}

// pumpRoom drives one websocket subscriber: every room change is
// forwarded as it lands, and the first completed snapshot starts the
// staged reveal. The client sends nothing meaningful; its read side is
// drained only to notice disconnects, mirroring how a view unmounting
// tears the subscription down.
func pumpRoom(ctx context.Context, conn *websocket.Conn, stream roomStream) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer stream.cancel()
	defer conn.Close()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	var (
		revealEvents <-chan reveal.Event
		revealPlayed bool
	)

	for {
		select {
		case raw, ok := <-stream.updates:
			if !ok {
				_ = conn.WriteJSON(wsEnvelope{Type: "gone"})
				return
			}
			if err := conn.WriteJSON(wsEnvelope{Type: "room", Room: raw}); err != nil {
				return
			}
			// The reveal runs once per connection: later writes to an
			// already-completed room (say, a repeated complete call)
			// must not restart the animation.
			if !revealPlayed && revealEvents == nil && stream.completed != nil && stream.completed(raw) {
				if seq := stream.sequencer(raw); seq != nil {
					revealEvents = seq.Run(ctx)
					revealPlayed = true
				}
			}

		case ev, ok := <-revealEvents:
			if !ok {
				revealEvents = nil
				continue
			}
			if err := conn.WriteJSON(wsEnvelope{Type: "reveal", Reveal: &ev}); err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, bool) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("client", realIP(r)).Msg("SERVE: Websocket upgrade failed")
		return nil, false
	}
	return conn, true
}

// marshalStream converts a typed room channel into raw JSON frames.
func marshalStream[T any](in <-chan T) <-chan json.RawMessage {
	out := make(chan json.RawMessage, 16)
	go func() {
		defer close(out)
		for room := range in {
			raw, err := json.Marshal(room)
			if err != nil {
				continue
			}
			out <- raw
		}
	}()
	return out
}
