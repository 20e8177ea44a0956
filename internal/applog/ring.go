package applog

import (
	"sync"
	"time"

	"github.com/ashureev/wooagent/internal/domain"
)

// MaxEntries is the default number of log entries kept in memory.
const MaxEntries = 100

// Entry is one recorded log line.
type Entry struct {
	Time    time.Time       `json:"timestamp"`
	Level   domain.LogLevel `json:"level"`
	Message string          `json:"message"`
	Data    map[string]any  `json:"data,omitempty"`
}

// Ring is a fixed-size circular buffer of log entries.
// When full the oldest entry is overwritten.
type Ring struct {
	buf  []Entry
	size int
	head int // next write position
	full bool
	mu   sync.RWMutex
}

// NewRing creates a ring holding at most size entries.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = MaxEntries
	}
	return &Ring{
		buf:  make([]Entry, size),
		size: size,
	}
}

// Add records e, evicting the oldest entry when the ring is full.
func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.head] = e
	r.head = (r.head + 1) % r.size
	if r.head == 0 {
		r.full = true
	}
}

// Recent returns up to n entries, newest first. n <= 0 returns everything.
func (r *Ring) Recent(n int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := r.lenLocked()
	if n <= 0 || n > count {
		n = count
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.head - i + r.size) % r.size
		out = append(out, r.buf[idx])
	}
	return out
}

// Len returns the number of stored entries.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lenLocked()
}

func (r *Ring) lenLocked() int {
	if r.full {
		return r.size
	}
	return r.head
}

// Clear drops every entry.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = make([]Entry, r.size)
	r.head = 0
	r.full = false
}

// Capacity returns the maximum number of entries.
func (r *Ring) Capacity() int {
	return r.size
}
