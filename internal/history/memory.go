package history

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxPatients bounds how many conversations MemoryStore keeps.
const DefaultMaxPatients = 1024

// MemoryStore keeps buffers in process, evicting the least recently used
// patient once maxPatients is reached.
type MemoryStore struct {
	mu    sync.Mutex
	limit int
	cache *lru.Cache[string, *Buffer]
}

func NewMemoryStore(limit, maxPatients int) (*MemoryStore, error) {
	if maxPatients <= 0 {
		maxPatients = DefaultMaxPatients
	}
	cache, err := lru.New[string, *Buffer](maxPatients)
	if err != nil {
		return nil, fmt.Errorf("creating history cache: %w", err)
	}
	return &MemoryStore{limit: NewBuffer(limit).Limit(), cache: cache}, nil
}

func (s *MemoryStore) Load(_ context.Context, patientID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.cache.Get(patientID)
	if !ok {
		return nil, nil
	}
	return buf.Turns(), nil
}

func (s *MemoryStore) Append(_ context.Context, patientID string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.cache.Get(patientID)
	if !ok {
		buf = NewBuffer(s.limit)
		s.cache.Add(patientID, buf)
	}
	buf.Append(turns...)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, patientID string) error {
	s.cache.Remove(patientID)
	return nil
}

// Len reports how many patients currently have a conversation.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
