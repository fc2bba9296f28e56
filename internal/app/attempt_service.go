package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/logger"
)

// SessionRepository abstracts where live attempt sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(attemptID string) (*Session, bool)
	Delete(attemptID string)
}

// QuizRepository loads quiz definitions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// SubmissionClient persists an assembled attempt. Implementations must treat
// a repeated attempt ID as already accepted.
type SubmissionClient interface {
	SubmitAttempt(ctx context.Context, attempt domain.QuizAttempt) error
}

// AttemptStore is a SubmissionClient that can also record post-attempt feedback.
type AttemptStore interface {
	SubmissionClient
	SaveFeedback(ctx context.Context, attemptID, feedback string, rating int) error
}

// ServiceOption customises an AttemptService.
type ServiceOption func(*AttemptService)

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *AttemptService) { s.now = now }
}

func WithServiceScheduler(sched Scheduler) ServiceOption {
	return func(s *AttemptService) { s.sched = sched }
}

func WithServiceLogger(log *logger.Logger) ServiceOption {
	return func(s *AttemptService) { s.log = log }
}

func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *AttemptService) { s.newID = newID }
}

func WithSubmitTimeout(d time.Duration) ServiceOption {
	return func(s *AttemptService) { s.submitTimeout = d }
}

// WithFinishedRetention sets how long a session stays reachable after its
// attempt was accepted, for snapshots and feedback. Zero keeps it until Abandon.
func WithFinishedRetention(d time.Duration) ServiceOption {
	return func(s *AttemptService) { s.retention = d }
}

// AttemptService contains the attempt use cases on top of Session.
type AttemptService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	attempts AttemptStore

	now           func() time.Time
	sched         Scheduler
	log           *logger.Logger
	newID         func() string
	submitTimeout time.Duration
	retention     time.Duration
}

func NewAttemptService(sessions SessionRepository, quizzes QuizRepository, attempts AttemptStore, opts ...ServiceOption) *AttemptService {
	s := &AttemptService{
		sessions:      sessions,
		quizzes:       quizzes,
		attempts:      attempts,
		now:           time.Now,
		sched:         TickerScheduler{},
		log:           logger.Nop(),
		newID:         uuid.NewString,
		submitTimeout: 10 * time.Second,
		retention:     5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartAttempt loads the quiz and starts its first level. Load and validation
// failures abort the session and are returned; the session is not kept.
func (s *AttemptService) StartAttempt(ctx context.Context, kind domain.Kind, quizID, userID string) (Snapshot, error) {
	session := NewSession(s.newID(), userID,
		WithClock(s.now),
		WithScheduler(s.sched),
		WithLogger(s.log.With("quiz_id", quizID, "user_id", userID)),
		WithFinishedHook(s.submit),
	)

	def, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", domain.ErrDefinitionLoad, quizID, err)
		return session.Abort(err), err
	}
	if def.Kind.Normalize() != kind.Normalize() {
		err = fmt.Errorf("%w: %s is a %s", domain.ErrKindMismatch, quizID, def.Kind.Normalize())
		return session.Abort(err), err
	}

	s.sessions.Put(session)
	snap, err := session.Start(def)
	if err != nil {
		s.sessions.Delete(session.ID())
		return snap, err
	}
	s.log.Info("attempt started", "attempt_id", session.ID(), "quiz_id", quizID, "user_id", userID, "kind", kind.Normalize())
	return snap, nil
}

// SelectAnswer records the user's choice for the current question.
func (s *AttemptService) SelectAnswer(_ context.Context, attemptID, option string) (Snapshot, error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	session.SelectAnswer(option)
	return session.Snapshot(), nil
}

// ForceClose closes every remaining level immediately and submits the attempt.
func (s *AttemptService) ForceClose(_ context.Context, attemptID string) (Snapshot, error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	session.ForceClose()
	return session.Snapshot(), nil
}

// Snapshot returns the read model of a live attempt.
func (s *AttemptService) Snapshot(_ context.Context, attemptID string) (Snapshot, error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives snapshots for an attempt.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AttemptService) Subscribe(_ context.Context, attemptID string) (<-chan Snapshot, func(), error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// RetrySubmission resends the retained attempt after a failed submission.
// It never re-runs the controller; an accepted or in-flight attempt is left alone.
func (s *AttemptService) RetrySubmission(ctx context.Context, attemptID string) (Snapshot, error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	attempt, send, err := session.beginResubmit()
	if err != nil {
		return session.Snapshot(), err
	}
	if !send {
		return session.Snapshot(), nil
	}
	err = s.send(ctx, session, attempt)
	return session.Snapshot(), err
}

// RecordFeedback attaches feedback and a 1-5 rating to a finished attempt. If
// the attempt is already persisted the store is updated; otherwise the
// feedback travels with the next submission.
func (s *AttemptService) RecordFeedback(ctx context.Context, attemptID, feedback string, rating int) (Snapshot, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return Snapshot{}, err
	}
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	_, status, err := session.setFeedback(feedback, rating)
	if err != nil {
		return session.Snapshot(), err
	}
	if status == SubmissionAccepted {
		if err := s.attempts.SaveFeedback(ctx, attemptID, feedback, rating); err != nil {
			return session.Snapshot(), fmt.Errorf("save feedback: %w", err)
		}
	}
	return session.Snapshot(), nil
}

// Abandon is used when the host goes away: the attempt is force-closed (and
// thereby submitted) and the session is dropped. A failed submission gets one
// more try; if that fails too the session is kept so RetrySubmission still
// has the attempt, and the error is returned.
func (s *AttemptService) Abandon(ctx context.Context, attemptID string) (Snapshot, error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	session.ForceClose()
	if session.Snapshot().Submission == SubmissionFailed {
		ctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
		if snap, err := s.RetrySubmission(ctx, attemptID); err != nil {
			return snap, err
		}
	}
	s.sessions.Delete(attemptID)
	return session.Snapshot(), nil
}

// submit is the session's finished hook; it runs once per attempt.
func (s *AttemptService) submit(session *Session, attempt domain.QuizAttempt) {
	ctx, cancel := context.WithTimeout(context.Background(), s.submitTimeout)
	defer cancel()
	_ = s.send(ctx, session, attempt)
}

func (s *AttemptService) send(ctx context.Context, session *Session, attempt domain.QuizAttempt) error {
	err := s.attempts.SubmitAttempt(ctx, attempt)
	snap := session.recordSubmission(err)
	if err != nil {
		s.log.Warn("attempt submission failed", "attempt_id", attempt.ID, "error", err)
		return fmt.Errorf("submit attempt: %w", err)
	}
	s.log.Info("attempt submitted", "attempt_id", attempt.ID, "total_score", attempt.TotalScore, "result", attempt.Result)

	// Feedback recorded while the submission was in flight is not in the stored row yet.
	if current := snap.Attempt; current != nil && (current.Feedback != attempt.Feedback || current.Rating != attempt.Rating) {
		if err := s.attempts.SaveFeedback(ctx, attempt.ID, current.Feedback, current.Rating); err != nil {
			s.log.Warn("late feedback not saved", "attempt_id", attempt.ID, "error", err)
		}
	}
	s.scheduleEviction(session)
	return nil
}

// scheduleEviction drops an accepted session after the retention window.
func (s *AttemptService) scheduleEviction(session *Session) {
	if s.retention <= 0 {
		return
	}
	time.AfterFunc(s.retention, func() {
		if current, ok := s.sessions.Get(session.ID()); ok && current == session {
			s.sessions.Delete(session.ID())
			s.log.Debug("finished session evicted", "attempt_id", session.ID())
		}
	})
}

// IsNotFound reports whether err means the requested quiz or attempt does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrQuizNotFound) || errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrAttemptNotFound)
}
