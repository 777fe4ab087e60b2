package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Job is one compile request and its outcome.
type Job struct {
	ID        string          `json:"id"`
	Query     string          `json:"query"`
	Status    string          `json:"status"`
	Plan      json.RawMessage `json:"plan,omitempty"`
	Error     *JobError       `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Duration  string          `json:"duration"`
}

// JobError describes why a query did not compile.
type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// jobStore keeps the newest jobs, evicting the oldest beyond limit.
type jobStore struct {
	mu    sync.RWMutex
	limit int
	order []string
	byID  map[string]*Job
}

func newJobStore(limit int) *jobStore {
	return &jobStore{limit: limit, byID: make(map[string]*Job)}
}

func newJobID() string {
	return uuid.NewString()
}

func (s *jobStore) add(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[j.ID] = j
	s.order = append(s.order, j.ID)
	for len(s.order) > s.limit {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *jobStore) get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.byID[id]
	return j, ok
}

func (s *jobStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
