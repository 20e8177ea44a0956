package simulate

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/fixtures"
	"github.com/jonboulle/clockwork"
)

const (
	// TickInterval is how often the stream considers adding a line.
	TickInterval = 3 * time.Second
	// AppendChance is the probability that a tick adds a line.
	AppendChance = 0.3

	subscriberBuffer = 16
)

// Filter selects log entries. Zero fields match everything.
type Filter struct {
	Type     domain.LogType
	MinLevel domain.LogLevel
}

// ParseFilter reads the "all"-or-value form used by query strings and flags.
func ParseFilter(typ, level string) (Filter, error) {
	var f Filter
	if typ != "" && typ != "all" {
		t, err := domain.ParseLogType(typ)
		if err != nil {
			return f, err
		}
		f.Type = t
	}
	if level != "" && level != "all" {
		l, err := domain.ParseLogLevel(level)
		if err != nil {
			return f, err
		}
		f.MinLevel = l
	}
	return f, nil
}

// Match reports whether e has the filter's type and is at least its level.
func (f Filter) Match(e domain.LogEntry) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.MinLevel != "" && !e.Level.AtLeast(f.MinLevel) {
		return false
	}
	return true
}

// StreamOption configures a LogStream.
type StreamOption func(*LogStream)

// WithClock sets the clock for timestamps and the ticker.
func WithClock(c clockwork.Clock) StreamOption {
	return func(s *LogStream) { s.clock = c }
}

// WithRand sets the source for the append chance and line selection.
func WithRand(r *rand.Rand) StreamOption {
	return func(s *LogStream) { s.rng = r }
}

// LogStream is a live, growing activity log for one agent.
type LogStream struct {
	agentID   string
	templates map[domain.LogType][]string
	clock     clockwork.Clock
	rng       *rand.Rand

	mu      sync.RWMutex
	entries []domain.LogEntry // newest first
	seq     int
	subs    map[int]chan domain.LogEntry
	nextSub int

	stopOnce sync.Once
	stop     chan struct{}
}

// NewLogStream opens a stream for agentID, pre-filled with the seed lines placed
// relative to the current time.
func NewLogStream(agentID string, seed *fixtures.Set, opts ...StreamOption) *LogStream {
	s := &LogStream{
		agentID:   agentID,
		templates: seed.LogTemplates,
		clock:     clockwork.NewRealClock(),
		subs:      make(map[int]chan domain.LogEntry),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	now := s.clock.Now()
	s.entries = make([]domain.LogEntry, 0, len(seed.SeedLogs))
	for i := len(seed.SeedLogs) - 1; i >= 0; i-- {
		l := seed.SeedLogs[i]
		s.entries = append(s.entries, domain.LogEntry{
			ID:        fmt.Sprintf("%s-%d", agentID, i+1),
			AgentID:   agentID,
			Timestamp: now.Add(l.Offset),
			Type:      l.Type,
			Level:     l.Type.Level(),
			Message:   l.Message,
		})
	}
	s.seq = len(seed.SeedLogs)
	return s
}

// Start runs the ticker until ctx is canceled or Close is called.
func (s *LogStream) Start(ctx context.Context) {
	ticker := s.clock.NewTicker(TickInterval)
	go func() {
		defer ticker.Stop()
		slog.Debug("Log stream started", "agent_id", s.agentID)
		for {
			select {
			case <-ticker.Chan():
				s.tick()
			case <-ctx.Done():
				s.Close()
				return
			case <-s.stop:
				slog.Debug("Log stream stopped", "agent_id", s.agentID)
				return
			}
		}
	}()
}

// Close stops the ticker and ends every subscription.
func (s *LogStream) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
		s.mu.Unlock()
	})
}

// tick appends a random line with probability AppendChance.
func (s *LogStream) tick() {
	if s.rng.Float64() <= 1-AppendChance {
		return
	}
	s.Append(s.randomEntry())
}

func (s *LogStream) randomEntry() domain.LogEntry {
	t := domain.LogTypes[s.rng.IntN(len(domain.LogTypes))]
	msgs := s.templates[t]
	msg := string(t)
	if len(msgs) > 0 {
		msg = msgs[s.rng.IntN(len(msgs))]
	}
	return domain.LogEntry{
		AgentID:   s.agentID,
		Timestamp: s.clock.Now(),
		Type:      t,
		Level:     t.Level(),
		Message:   msg,
	}
}

// Append adds e as the newest line and fans it out to subscribers. An empty id is assigned.
func (s *LogStream) Append(e domain.LogEntry) domain.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if e.ID == "" {
		e.ID = fmt.Sprintf("%s-%d", s.agentID, s.seq)
	}
	e.AgentID = s.agentID
	if e.Level == "" {
		e.Level = e.Type.Level()
	}
	s.entries = append([]domain.LogEntry{e}, s.entries...)

	for id, ch := range s.subs {
		select {
		case ch <- e:
		default:
			slog.Debug("Log subscriber lagging, dropping line", "agent_id", s.agentID, "subscriber", id)
		}
	}
	return e
}

// Entries returns the lines matching f, newest first.
func (s *LogStream) Entries(f Filter) []domain.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LogEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of stored lines.
func (s *LogStream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops every stored line. Subscriptions stay open.
func (s *LogStream) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Subscribe returns a channel receiving every new line and a function that ends
// the subscription. The channel is closed when the stream closes.
func (s *LogStream) Subscribe() (<-chan domain.LogEntry, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan domain.LogEntry, subscriberBuffer)
	select {
	case <-s.stop:
		close(ch)
		return ch, func() {}
	default:
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}
