// Package simulate drives the live chat demo and the agent log stream on an injectable clock.
package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Phase is the state of a chat replay.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseTyping     Phase = "typing"
	PhaseThinking   Phase = "thinking"
	PhaseDisplaying Phase = "displaying"
	PhaseComplete   Phase = "complete"
)

// Base delays at speed 1.
const (
	TypingDuration   = 1000 * time.Millisecond
	ThinkingDuration = 1500 * time.Millisecond
	DisplayDuration  = 2000 * time.Millisecond
)

// Speeds lists the selectable replay multipliers.
var Speeds = []float64{0.5, 1, 2}

// ParseSpeed accepts one of Speeds; an empty string means 1.
func ParseSpeed(s string) (float64, error) {
	if s == "" {
		return 1, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse speed: %w", err)
	}
	for _, ok := range Speeds {
		if v == ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("speed must be one of 0.5, 1, 2, got %s", s)
}

// TypingDelay is the per-character delay of the typing effect, 30 to 70 ms.
func TypingDelay() time.Duration {
	return 30*time.Millisecond + rand.N(40*time.Millisecond)
}

// Event is emitted on every replay transition.
type Event struct {
	Phase Phase `json:"phase"`
	// Index is the script position of the next turn.
	Index int `json:"index"`
	// Message is the turn that became visible with this transition, if any.
	Message *domain.ScriptTurn `json:"message,omitempty"`
	Shown   int                `json:"shown"`
	Total   int                `json:"total"`
}

// Replay plays a demo script: a user turn is typed, then shown; an agent turn that
// answers a user turn is preceded by thinking; an agent turn stays displayed before
// the next one starts.
type Replay struct {
	script domain.Script

	mu    sync.Mutex
	speed float64
	phase Phase
	index int
	shown []domain.ScriptTurn
}

// NewReplay creates an idle replay of script at speed. Invalid speeds fall back to 1.
func NewReplay(script domain.Script, speed float64) *Replay {
	r := &Replay{script: script, phase: PhaseIdle}
	r.SetSpeed(speed)
	return r
}

// SetSpeed changes the multiplier for every delay that has not started yet.
func (r *Replay) SetSpeed(speed float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if speed <= 0 {
		speed = 1
	}
	r.speed = speed
}

// Phase returns the current state.
func (r *Replay) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Messages returns the turns shown so far.
func (r *Replay) Messages() []domain.ScriptTurn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ScriptTurn(nil), r.shown...)
}

// Restart returns to idle at the first turn.
func (r *Replay) Restart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = PhaseIdle
	r.index = 0
	r.shown = nil
}

func (r *Replay) scale(d time.Duration) time.Duration {
	return time.Duration(float64(d) / r.speed)
}

func (r *Replay) event(msg *domain.ScriptTurn) Event {
	return Event{
		Phase:   r.phase,
		Index:   r.index,
		Message: msg,
		Shown:   len(r.shown),
		Total:   len(r.script.Turns),
	}
}

// Step performs one transition and returns the emitted event and how long the
// new phase lasts before the next Step.
func (r *Replay) Step() (Event, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index >= len(r.script.Turns) {
		r.phase = PhaseComplete
		return r.event(nil), 0
	}

	turn := r.script.Turns[r.index]
	if turn.Role == domain.RoleUser && r.phase != PhaseTyping {
		r.phase = PhaseTyping
		return r.event(nil), r.scale(TypingDuration)
	}

	r.shown = append(r.shown, turn)
	r.index++

	if turn.Role == domain.RoleUser {
		if r.index < len(r.script.Turns) && r.script.Turns[r.index].Role == domain.RoleAgent {
			r.phase = PhaseThinking
			return r.event(&turn), r.scale(ThinkingDuration)
		}
		r.phase = PhaseDisplaying
		return r.event(&turn), 0
	}

	r.phase = PhaseDisplaying
	return r.event(&turn), r.scale(DisplayDuration)
}

// Run steps until the script completes or ctx is canceled, waiting on clock between
// steps. emit receives every event; an emit error stops the replay.
func (r *Replay) Run(ctx context.Context, clock clockwork.Clock, emit func(Event) error) error {
	for {
		ev, wait := r.Step()
		if err := emit(ev); err != nil {
			return err
		}
		if ev.Phase == PhaseComplete {
			return nil
		}
		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(wait):
		}
	}
}
