package memory

import (
	"context"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// AttemptStore keeps submitted attempts in memory. A repeated attempt ID is
// accepted without overwriting the first submission.
type AttemptStore struct {
	mu       sync.RWMutex
	order    []string
	attempts map[string]domain.QuizAttempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]domain.QuizAttempt)}
}

func (s *AttemptStore) SubmitAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; ok {
		return nil
	}
	s.attempts[attempt.ID] = attempt
	s.order = append(s.order, attempt.ID)
	return nil
}

func (s *AttemptStore) SaveFeedback(_ context.Context, attemptID, feedback string, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	attempt.Feedback = feedback
	attempt.Rating = rating
	s.attempts[attemptID] = attempt
	return nil
}

// Get returns a stored attempt.
func (s *AttemptStore) Get(attemptID string) (domain.QuizAttempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	return attempt, ok
}

// List returns attempts in submission order.
func (s *AttemptStore) List() []domain.QuizAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizAttempt, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.attempts[id])
	}
	return out
}
