package dresscode

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

func (s *Service) Create(ctx context.Context, hostName string) (Room, error) {
	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return Room{}, rooms.Invalid("host name is required")
	}

	var room Room
	_, err := s.kernel.Create(ctx, Collection, rooms.AlphabetFull, func(meta rooms.Meta) (json.RawMessage, error) {
		room = Room{
			ID:          meta.ID,
			Code:        meta.Code,
			HostName:    hostName,
			CreatedAt:   meta.Now,
			ExpiresAt:   meta.ExpiresAt,
			Submissions: []Submission{},
			Votes:       []Vote{},
		}
		return json.Marshal(room)
	})
	if err != nil {
		return Room{}, err
	}
	return room, nil
}

// GetByCode resolves a room for participants. Unlike the join paths of
// the other variants, completed dress-code rooms stay reachable by
// code so late arrivals can watch the results; writes are still
// rejected by the submission and vote paths.
func (s *Service) GetByCode(ctx context.Context, code string) (Room, error) {
	doc, err := s.kernel.GetByCode(ctx, Collection, code)
	if err != nil {
		return Room{}, err
	}
	return decode(doc.Data)
}

// JoinByCode resolves a code for a new participant, rejecting expired
// and completed rooms alike.
func (s *Service) JoinByCode(ctx context.Context, code string) (string, error) {
	room, err := s.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if room.IsCompleted {
		return "", rooms.ErrNotFound
	}
	return room.ID, nil
}

// Subscribe streams the room by code until it expires.
func (s *Service) Subscribe(ctx context.Context, code string) (<-chan Room, func(), error) {
	room, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	docs, cancel := s.kernel.Subscribe(ctx, Collection, room.ID)
	out := make(chan Room, 16)

	go func() {
		defer close(out)
		for doc := range docs {
			decoded, err := decode(doc.Data)
			if err != nil {
				continue
			}
			select {
			case out <- decoded:
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()

	return out, cancel, nil
}

// ValidatePhoto enforces the photo intake contract: an inline image
// data URI of at most MaxPhotoBytes. Downscaling happens client-side
// before upload and is not re-checked here.
func ValidatePhoto(photoURL string) error {
	if photoURL == "" {
		return rooms.Invalid("a photo is required")
	}
	if len(photoURL) > MaxPhotoBytes {
		return rooms.Invalid("photo too large, limit is 10 MB")
	}
	if !strings.HasPrefix(photoURL, "data:image/") {
		return rooms.Invalid("only image files are accepted")
	}
	return nil
}

// SubmitEntry records a device's entry. First submission appends;
// a resubmission before completion overwrites the existing entry in
// place.
func (s *Service) SubmitEntry(ctx context.Context, code, deviceID, name, photoURL, message string) error {
	name = strings.TrimSpace(name)
	if deviceID == "" {
		return rooms.Invalid("device identity is required")
	}
	if name == "" {
		return rooms.Invalid("name is required")
	}
	if err := ValidatePhoto(photoURL); err != nil {
		return err
	}

	return s.mutateByCode(ctx, code, func(room *Room) error {
		entry := Submission{
			DeviceID:    deviceID,
			Name:        name,
			PhotoURL:    photoURL,
			Message:     message,
			SubmittedAt: s.kernel.Now(),
		}

		for i := range room.Submissions {
			if room.Submissions[i].DeviceID == deviceID {
				room.Submissions[i] = entry
				return nil
			}
		}
		room.Submissions = append(room.Submissions, entry)
		return nil
	})
}

// SubmitVotes records a device's ballot. Single-shot: once a vote
// exists for this device, every later ballot is rejected regardless
// of content.
func (s *Service) SubmitVotes(ctx context.Context, code, deviceID string, votedFor []string) error {
	if deviceID == "" {
		return rooms.Invalid("device identity is required")
	}
	if len(votedFor) == 0 {
		return rooms.Invalid("pick at least one entry to vote for")
	}
	if len(votedFor) > MaxVotes {
		return rooms.Invalid("you can vote for at most %d entries", MaxVotes)
	}

	seen := make(map[string]struct{}, len(votedFor))
	for _, target := range votedFor {
		if target == deviceID {
			return rooms.Invalid("you cannot vote for yourself")
		}
		if _, dup := seen[target]; dup {
			return rooms.Invalid("duplicate vote target")
		}
		seen[target] = struct{}{}
	}

	return s.mutateByCode(ctx, code, func(room *Room) error {
		for _, v := range room.Votes {
			if v.DeviceID == deviceID {
				return rooms.Invalid("you have already voted")
			}
		}
		room.Votes = append(room.Votes, Vote{
			DeviceID: deviceID,
			VotedFor: votedFor,
			VotedAt:  s.kernel.Now(),
		})
		return nil
	})
}

// Complete freezes the room and returns the official tally.
func (s *Service) Complete(ctx context.Context, code string) ([]VoteResult, error) {
	room, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	doc, err := s.kernel.Mutate(ctx, Collection, room.ID, func(data json.RawMessage) (json.RawMessage, error) {
		current, err := decode(data)
		if err != nil {
			return nil, err
		}
		current.IsCompleted = true
		return json.Marshal(current)
	})
	if err != nil {
		return nil, err
	}

	frozen, err := decode(doc.Data)
	if err != nil {
		return nil, err
	}
	return Tally(frozen), nil
}

// Status reports what this device has already contributed.
func Status(room Room, deviceID string) UserStatus {
	status := UserStatus{}
	for i := range room.Submissions {
		if room.Submissions[i].DeviceID == deviceID {
			status.HasSubmitted = true
			status.Submission = &room.Submissions[i]
			break
		}
	}
	for _, v := range room.Votes {
		if v.DeviceID == deviceID {
			status.HasVoted = true
			break
		}
	}
	return status
}

func (s *Service) mutateByCode(ctx context.Context, code string, fn func(room *Room) error) error {
	room, err := s.GetByCode(ctx, code)
	if err != nil {
		return err
	}

	_, err = s.kernel.Mutate(ctx, Collection, room.ID, func(data json.RawMessage) (json.RawMessage, error) {
		current, err := decode(data)
		if err != nil {
			return nil, err
		}
		if current.IsCompleted {
			return nil, rooms.ErrCompleted
		}
		if err := fn(&current); err != nil {
			return nil, err
		}
		return json.Marshal(current)
	})
	return err
}

func decode(data json.RawMessage) (Room, error) {
	var room Room
	if err := json.Unmarshal(data, &room); err != nil {
		return Room{}, fmt.Errorf("decode dress-code room: %w", err)
	}
	return room, nil
}
