// Package history keeps the last few conversation turns for each patient.
//
// A Buffer is a caller-owned bounded queue. A Store persists buffers per
// patient; the memory and Redis implementations are both safe for concurrent
// use, but callers serialize a single patient's turns with a Locker so that
// load-then-append is atomic.
package history

import (
	"context"
	"sync"
)

// DefaultLimit is the number of turns kept per patient.
const DefaultLimit = 10

// Turn is one message in a conversation.
type Turn struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// Buffer holds at most Limit turns, discarding the oldest first.
type Buffer struct {
	limit int
	turns []Turn
}

// NewBuffer returns an empty buffer. A limit <= 0 uses DefaultLimit.
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Buffer{limit: limit}
}

// Append adds turns and drops the oldest beyond the limit.
func (b *Buffer) Append(turns ...Turn) {
	b.turns = append(b.turns, turns...)
	if over := len(b.turns) - b.limit; over > 0 {
		b.turns = append([]Turn(nil), b.turns[over:]...)
	}
}

// Turns returns a copy of the buffered turns, oldest first.
func (b *Buffer) Turns() []Turn {
	return append([]Turn(nil), b.turns...)
}

func (b *Buffer) Len() int   { return len(b.turns) }
func (b *Buffer) Limit() int { return b.limit }

func (b *Buffer) Reset() { b.turns = nil }

// Store persists conversation turns per patient.
type Store interface {
	Load(ctx context.Context, patientID string) ([]Turn, error)
	Append(ctx context.Context, patientID string, turns ...Turn) error
	Clear(ctx context.Context, patientID string) error
}

// Locker hands out one mutex per key. Entries are dropped when the last
// holder unlocks, so idle patients cost nothing.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	k, ok := l.locks[key]
	if !ok {
		k = &keyLock{}
		l.locks[key] = k
	}
	k.refs++
	l.mu.Unlock()

	k.mu.Lock()
	return func() {
		k.mu.Unlock()
		l.mu.Lock()
		k.refs--
		if k.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
