package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Seednode/roombox/internal/rooms"
)

type Service struct {
	kernel *rooms.Kernel
}

func NewService(kernel *rooms.Kernel) *Service {
	return &Service{kernel: kernel}
}

// Create opens a new scoring room for the named host and returns it
// with its shareable code.
func (s *Service) Create(ctx context.Context, hostName string) (Room, error) {
	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return Room{}, rooms.Invalid("host name is required")
	}

	var room Room
	_, err := s.kernel.Create(ctx, Collection, rooms.AlphabetSafe, func(meta rooms.Meta) (json.RawMessage, error) {
		room = Room{
			ID:           meta.ID,
			Code:         meta.Code,
			HostName:     hostName,
			CreatedAt:    meta.Now,
			ExpiresAt:    meta.ExpiresAt,
			Judges:       []Judge{},
			Performances: []Performance{},
			Scores:       []Score{},
		}
		return json.Marshal(room)
	})
	if err != nil {
		return Room{}, err
	}
	return room, nil
}

// JoinByCode resolves a room code for a joining participant. Expired
// and completed rooms both surface as not found; participants must not
// join a frozen room.
func (s *Service) JoinByCode(ctx context.Context, code string) (string, error) {
	doc, err := s.kernel.GetByCode(ctx, Collection, code)
	if err != nil {
		return "", err
	}
	room, err := decode(doc.Data)
	if err != nil {
		return "", err
	}
	if room.IsCompleted {
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

// Subscribe streams the room on every change. Completed rooms are
// still delivered so subscribers can render the frozen result; the
// stream closes once the room expires.
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

// AddJudge enrolls a judge and mints their capability token. The token
// is returned once, to the host, who hands it to the judge.
func (s *Service) AddJudge(ctx context.Context, roomID, name string) (Judge, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Judge{}, rooms.Invalid("judge name is required")
	}

	var judge Judge
	_, err := s.mutate(ctx, roomID, func(room *Room) error {
		judge = Judge{
			ID:       "judge-" + rooms.NewToken(),
			Name:     name,
			Token:    rooms.NewToken(),
			Avatar:   avatarFor(name),
			JoinedAt: s.kernel.Now(),
		}
		room.Judges = append(room.Judges, judge)
		return nil
	})
	if err != nil {
		return Judge{}, err
	}
	return judge, nil
}

// RemoveJudge drops the judge and every score they authored, in the
// same atomic update. Removing an unknown judge is a no-op.
func (s *Service) RemoveJudge(ctx context.Context, roomID, judgeID string) error {
	_, err := s.mutate(ctx, roomID, func(room *Room) error {
		judges := room.Judges[:0]
		for _, j := range room.Judges {
			if j.ID != judgeID {
				judges = append(judges, j)
			}
		}
		room.Judges = judges

		scores := room.Scores[:0]
		for _, sc := range room.Scores {
			if sc.JudgeID != judgeID {
				scores = append(scores, sc)
			}
		}
		room.Scores = scores
		return nil
	})
	return err
}

// AddPerformance appends a performance at the next ordinal position.
// Positions are never renumbered.
func (s *Service) AddPerformance(ctx context.Context, roomID, name string) (Performance, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Performance{}, rooms.Invalid("performance name is required")
	}

	var perf Performance
	_, err := s.mutate(ctx, roomID, func(room *Room) error {
		perf = Performance{
			ID:        "perf-" + rooms.NewToken(),
			Name:      name,
			Order:     len(room.Performances) + 1,
			CreatedAt: s.kernel.Now(),
		}
		room.Performances = append(room.Performances, perf)
		return nil
	})
	if err != nil {
		return Performance{}, err
	}
	return perf, nil
}

// SubmitScore records one judge's score for one performance. The
// (judge, performance) pair holds at most one score; resubmission
// replaces the previous value.
func (s *Service) SubmitScore(ctx context.Context, roomID, judgeID, performanceID string, value int) error {
	if value < MinScore || value > MaxScore {
		return rooms.Invalid("score must be between %d and %d", MinScore, MaxScore)
	}

	_, err := s.mutate(ctx, roomID, func(room *Room) error {
		if !hasJudge(room, judgeID) {
			return rooms.Invalid("judge is not part of this room")
		}
		if !hasPerformance(room, performanceID) {
			return rooms.Invalid("performance is not part of this room")
		}

		scores := room.Scores[:0]
		for _, sc := range room.Scores {
			if sc.JudgeID == judgeID && sc.PerformanceID == performanceID {
				continue
			}
			scores = append(scores, sc)
		}
		room.Scores = append(scores, Score{
			JudgeID:       judgeID,
			PerformanceID: performanceID,
			Value:         value,
			SubmittedAt:   s.kernel.Now(),
		})
		return nil
	})
	return err
}

// Complete freezes the room and computes the official ranking. The
// transition is one-way; completing an already-completed room just
// returns the frozen result again.
func (s *Service) Complete(ctx context.Context, roomID string) (Room, []Ranked, error) {
	doc, err := s.kernel.Mutate(ctx, Collection, roomID, func(data json.RawMessage) (json.RawMessage, error) {
		room, err := decode(data)
		if err != nil {
			return nil, err
		}
		room.IsCompleted = true
		return json.Marshal(room)
	})
	if err != nil {
		return Room{}, nil, err
	}

	room, err := decode(doc.Data)
	if err != nil {
		return Room{}, nil, err
	}
	return room, Ranking(room), nil
}

// mutate wraps kernel.Mutate with decode/encode and the frozen-room
// check shared by every contribution write.
func (s *Service) mutate(ctx context.Context, roomID string, fn func(room *Room) error) (Room, error) {
	doc, err := s.kernel.Mutate(ctx, Collection, roomID, func(data json.RawMessage) (json.RawMessage, error) {
		room, err := decode(data)
		if err != nil {
			return nil, err
		}
		if room.IsCompleted {
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

func decode(data json.RawMessage) (Room, error) {
	var room Room
	if err := json.Unmarshal(data, &room); err != nil {
		return Room{}, fmt.Errorf("decode scoring room: %w", err)
	}
	return room, nil
}

func hasJudge(room *Room, judgeID string) bool {
	for _, j := range room.Judges {
		if j.ID == judgeID {
			return true
		}
	}
	return false
}

func hasPerformance(room *Room, performanceID string) bool {
	for _, p := range room.Performances {
		if p.ID == performanceID {
			return true
		}
	}
	return false
}
