package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-attempt-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions own a live timer, so they are kept in a local map; Redis only
//     marks which attempts are in progress on this instance.
//   - The marker expires after ttl, so attempts orphaned by a crashed instance
//     disappear on their own.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	instance string
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, instance string) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		instance: instance,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), s.instance, s.ttl).Err()
}

func (s *SessionStore) Get(attemptID string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[attemptID]
	s.mu.RUnlock()
	if ok {
		_ = s.client.Expire(context.Background(), s.key(attemptID), s.ttl).Err()
	}
	return session, ok
}

func (s *SessionStore) Delete(attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, attemptID)
	_ = s.client.Del(context.Background(), s.key(attemptID)).Err()
}

// Owner returns the instance that holds a live attempt, if any.
func (s *SessionStore) Owner(ctx context.Context, attemptID string) (string, bool, error) {
	owner, err := s.client.Get(ctx, s.key(attemptID)).Result()
	if IsCacheMiss(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return owner, true, nil
}

func (s *SessionStore) key(attemptID string) string {
	return "attempt:session:" + attemptID
}
