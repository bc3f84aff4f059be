// Package reveal drives the staged disclosure of final standings.
//
// The sequencer is purely presentational: it consumes the size of a
// frozen ranking and emits timed events; the ranking itself is
// computed once at completion and never changes. Re-running the
// sequence (say, after a page reload) replays the animation over the
// same content.
package reveal

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

type State string

const (
	StateQuestion  State = "question"
	StateRevealing State = "revealing"
	StatePodium    State = "podium"
	StateSettled   State = "settled"
)

// Cue is a presentation side effect the client may play alongside an
// event. Playback itself is the client's concern.
type Cue string

const (
	CueNone     Cue = ""
	CueSound    Cue = "sound"
	CueConfetti Cue = "confetti"
)

// RankRemainder marks the single event that discloses every rank
// beyond the spotlighted top-N at once, unstaged.
const RankRemainder = -1

// Event is one step of the reveal. Rank is the 0-based position being
// disclosed (0 is the winner) and is only meaningful while revealing.
type Event struct {
	State State `json:"state"`
	Rank  int   `json:"rank"`
	Cue   Cue   `json:"cue,omitempty"`
}

// Options fix the timing contract of one sequence.
type Options struct {
	TopN     int           // how many ranks are disclosed one by one
	Dwell    time.Duration // question-screen hold before revealing
	Interval time.Duration // spacing between staged disclosures
}

// Scoring is the preset used by the performance-scoring variant.
func Scoring() Options {
	return Options{TopN: 5, Dwell: 3 * time.Second, Interval: 1500 * time.Millisecond}
}

// DressCode is the preset used by the dress-code variant.
func DressCode() Options {
	return Options{TopN: 3, Dwell: 3 * time.Second, Interval: 2 * time.Second}
}

type Sequencer struct {
	clock clockwork.Clock
	opts  Options
	total int // entries in the frozen ranking
}

func New(clock clockwork.Clock, total int, opts Options) *Sequencer {
	return &Sequencer{clock: clock, opts: opts, total: total}
}

// Run plays the sequence: question, a dwell, staged disclosures from
// the bottom of the top-N up to the winner, the unstaged remainder,
// podium, settled. Events arrive on the returned channel, which closes
// after settling or as soon as ctx is cancelled.
func (s *Sequencer) Run(ctx context.Context) <-chan Event {
	events := make(chan Event, s.total+8)

	go func() {
		defer close(events)

		emit := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		sleep := func(d time.Duration) bool {
			select {
			case <-s.clock.After(d):
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(Event{State: StateQuestion}) {
			return
		}
		if !sleep(s.opts.Dwell) {
			return
		}

		staged := s.opts.TopN
		if s.total < staged {
			staged = s.total
		}

		for rank := staged - 1; rank >= 0; rank-- {
			if !sleep(s.opts.Interval) {
				return
			}
			cue := CueSound
			if rank == 0 {
				cue = CueConfetti
			}
			if !emit(Event{State: StateRevealing, Rank: rank, Cue: cue}) {
				return
			}
		}

		if s.total > staged {
			if !emit(Event{State: StateRevealing, Rank: RankRemainder}) {
				return
			}
		}

		if !emit(Event{State: StatePodium}) {
			return
		}
		emit(Event{State: StateSettled})
	}()

	return events
}
