package spy

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/Seednode/roombox/internal/rooms"
)

type Service struct {
	kernel *rooms.Kernel
}

func NewService(kernel *rooms.Kernel) *Service {
	return &Service{kernel: kernel}
}

// Create opens a spy room. The host is anonymous: they hold a
// generated player id instead of supplying a display name.
func (s *Service) Create(ctx context.Context) (Room, error) {
	var room Room
	_, err := s.kernel.Create(ctx, Collection, rooms.AlphabetSafe, func(meta rooms.Meta) (json.RawMessage, error) {
		room = Room{
			ID:              meta.ID,
			Code:            meta.Code,
			HostID:          rooms.NewPlayerID(),
			CreatedAt:       meta.Now,
			ExpiresAt:       meta.ExpiresAt,
			Status:          StatusWaiting,
			Players:         []Player{},
			EliminatedOrder: []string{},
		}
		return json.Marshal(room)
	})
	if err != nil {
		return Room{}, err
	}
	return room, nil
}

// JoinByCode resolves a code for a new player, rejecting expired and
// ended rooms alike.
func (s *Service) JoinByCode(ctx context.Context, code string) (string, error) {
	doc, err := s.kernel.GetByCode(ctx, Collection, code)
	if err != nil {
		return "", err
	}
	room, err := decode(doc.Data)
	if err != nil {
		return "", err
	}
	if room.Status == StatusEnded {
		return "", rooms.ErrNotFound
	}
	return room.ID, nil
}

func (s *Service) Get(ctx context.Context, id string) (Room, error) {
	doc, err := s.kernel.Get(ctx, Collection, id)
	if err != nil {
		return Room{}, err
	}
	return decode(doc.Data)
}

// Subscribe streams the room until it expires. Ended rooms are still
// delivered so players see the final reveal.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Room, func()) {
	docs, cancel := s.kernel.Subscribe(ctx, Collection, id)
	out := make(chan Room, 16)

	go func() {
		defer close(out)
		for doc := range docs {
			room, err := decode(doc.Data)
			if err != nil {
				continue
			}
			select {
			case out <- room:
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()

	return out, cancel
}

// AddPlayer enrolls a player into the lobby. Names are unique per
// room, case-insensitively.
func (s *Service) AddPlayer(ctx context.Context, roomID, name string) (Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Player{}, rooms.Invalid("player name is required")
	}

	var player Player
	_, err := s.mutate(ctx, roomID, func(room *Room) error {
		for _, p := range room.Players {
			if strings.EqualFold(p.Name, name) {
				return rooms.Invalid("player name already taken")
			}
		}
		player = Player{
			ID:       rooms.NewPlayerID(),
			Name:     name,
			Status:   PlayerAlive,
			JoinedAt: s.kernel.Now(),
			Avatar:   "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(name),
		}
		room.Players = append(room.Players, player)
		return nil
	})
	if err != nil {
		return Player{}, err
	}
	return player, nil
}

// RemovePlayer drops a player from the lobby. Roles and eliminations
// live on the player record, so no cascade is needed.
func (s *Service) RemovePlayer(ctx context.Context, roomID, playerID string) error {
	_, err := s.mutate(ctx, roomID, func(room *Room) error {
		players := room.Players[:0]
		for _, p := range room.Players {
			if p.ID != playerID {
				players = append(players, p)
			}
		}
		room.Players = players
		return nil
	})
	return err
}

// Start begins a round: validates the lobby, assigns exactly spyCount
// spies by uniform shuffle, and fixes the keywords. Roles are assigned
// exactly once per start; a second Start without a Restart is
// rejected.
func (s *Service) Start(ctx context.Context, roomID string, spyCount int, civilianKeyword, spyKeyword string) error {
	if civilianKeyword == "" || spyKeyword == "" {
		return rooms.Invalid("both keywords are required")
	}

	_, err := s.mutate(ctx, roomID, func(room *Room) error {
		if room.Status != StatusWaiting {
			return rooms.Invalid("the round has already started")
		}
		if len(room.Players) < MinPlayers {
			return rooms.Invalid("need at least %d players to start", MinPlayers)
		}
		if spyCount < 1 || spyCount >= len(room.Players) {
			return rooms.Invalid("spy count must be between 1 and %d", len(room.Players)-1)
		}

		spies := pickSpies(len(room.Players), spyCount)
		for i := range room.Players {
			role := RoleCivilian
			if spies[i] {
				role = RoleSpy
			}
			room.Players[i].Role = &role
			room.Players[i].Status = PlayerAlive
			room.Players[i].EliminatedAt = nil
		}

		room.Status = StatusPlaying
		room.Settings = &Settings{
			SpyCount:        spyCount,
			CivilianKeyword: civilianKeyword,
			SpyKeyword:      spyKeyword,
		}
		return nil
	})
	return err
}

// Eliminate marks a player eliminated and appends them to the ordered
// elimination list. The transition is alive to eliminated only.
func (s *Service) Eliminate(ctx context.Context, roomID, playerID string) error {
	_, err := s.mutate(ctx, roomID, func(room *Room) error {
		if room.Status != StatusPlaying {
			return rooms.Invalid("no round in progress")
		}
		for i := range room.Players {
			if room.Players[i].ID != playerID {
				continue
			}
			if room.Players[i].Status == PlayerEliminated {
				return rooms.Invalid("player has already been eliminated")
			}
			now := s.kernel.Now()
			room.Players[i].Status = PlayerEliminated
			room.Players[i].EliminatedAt = &now
			room.EliminatedOrder = append(room.EliminatedOrder, playerID)
			return nil
		}
		return rooms.Invalid("player is not part of this room")
	})
	return err
}

// End freezes the room. One-way, except through Restart.
func (s *Service) End(ctx context.Context, roomID string) error {
	_, err := s.kernel.Mutate(ctx, Collection, roomID, func(data json.RawMessage) (json.RawMessage, error) {
		room, err := decode(data)
		if err != nil {
			return nil, err
		}
		room.Status = StatusEnded
		return json.Marshal(room)
	})
	return err
}

// Restart resets the room for a fresh round without a new document:
// back to waiting, settings cleared, every player alive and roleless,
// elimination history emptied. The code and id stay the same, so
// already-shared links keep working.
func (s *Service) Restart(ctx context.Context, roomID string) error {
	_, err := s.kernel.Mutate(ctx, Collection, roomID, func(data json.RawMessage) (json.RawMessage, error) {
		room, err := decode(data)
		if err != nil {
			return nil, err
		}

		room.Status = StatusWaiting
		room.Settings = nil
		room.EliminatedOrder = []string{}
		for i := range room.Players {
			room.Players[i].Role = nil
			room.Players[i].Status = PlayerAlive
			room.Players[i].EliminatedAt = nil
		}

		return json.Marshal(room)
	})
	return err
}

// mutate wraps kernel.Mutate with decode/encode and the ended-room
// guard shared by the contribution writes.
func (s *Service) mutate(ctx context.Context, roomID string, fn func(room *Room) error) (Room, error) {
	doc, err := s.kernel.Mutate(ctx, Collection, roomID, func(data json.RawMessage) (json.RawMessage, error) {
		room, err := decode(data)
		if err != nil {
			return nil, err
		}
		if room.Status == StatusEnded {
			return nil, rooms.ErrCompleted
		}
		if err := fn(&room); err != nil {
			return nil, err
		}
		return json.Marshal(room)
	})
	if err != nil {
		return Room{}, err
	}
	return decode(doc.Data)
}

// pickSpies selects exactly k distinct indices out of n, uniformly,
// via a Fisher-Yates shuffle over the index list.
func pickSpies(n, k int) map[int]bool {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	for i := n - 1; i > 0; i-- {
		j, err := crand.Int(crand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		indices[i], indices[j.Int64()] = indices[j.Int64()], indices[i]
	}

	spies := make(map[int]bool, k)
	for _, idx := range indices[:k] {
		spies[idx] = true
	}
	return spies
}

func decode(data json.RawMessage) (Room, error) {
	var room Room
	if err := json.Unmarshal(data, &room); err != nil {
		return Room{}, fmt.Errorf("decode spy room: %w", err)
	}
	return room, nil
}
