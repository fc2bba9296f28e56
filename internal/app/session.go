package app

import (
	"sync"
	"sync/atomic"
	"time"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/logger"
)

// SubmissionStatus tracks the hand-off of the assembled attempt.
type SubmissionStatus string

const (
	SubmissionNone     SubmissionStatus = "none"
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionAccepted SubmissionStatus = "accepted"
	SubmissionFailed   SubmissionStatus = "failed"
)

// QuestionView is the player-facing part of a question; the correct option is withheld.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
	Hint    string   `json:"hint,omitempty"`
}

// Snapshot is the read model exposed to hosts.
type Snapshot struct {
	AttemptID        string              `json:"attemptId"`
	UserID           string              `json:"userId"`
	QuizID           string              `json:"quizId,omitempty"`
	QuizName         string              `json:"quizName,omitempty"`
	Kind             domain.Kind         `json:"kind,omitempty"`
	State            State               `json:"state"`
	LevelIndex       int                 `json:"levelIndex"`
	LevelCount       int                 `json:"levelCount"`
	LevelName        string              `json:"levelName,omitempty"`
	QuestionIndex    int                 `json:"questionIndex"`
	QuestionCount    int                 `json:"questionCount"`
	SecondsRemaining int                 `json:"secondsRemaining"`
	Score            int                 `json:"score"`
	Question         *QuestionView       `json:"question,omitempty"`
	Submission       SubmissionStatus    `json:"submission"`
	SubmissionError  string              `json:"submissionError,omitempty"`
	Attempt          *domain.QuizAttempt `json:"attempt,omitempty"`
	Error            string              `json:"error,omitempty"`
}

// FinishedHook receives the assembled attempt exactly once per session.
type FinishedHook func(s *Session, attempt domain.QuizAttempt)

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithClock overrides time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithScheduler overrides the tick source of the level timer.
func WithScheduler(sched Scheduler) SessionOption {
	return func(s *Session) { s.sched = sched }
}

func WithLogger(log *logger.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

func WithFinishedHook(hook FinishedHook) SessionOption {
	return func(s *Session) { s.onFinished = hook }
}

// Session is the controller for one attempt. Every transition runs under mu,
// so user events and timer expiry are serialised.
type Session struct {
	id         string
	userID     string
	now        func() time.Time
	sched      Scheduler
	log        *logger.Logger
	timer      *LevelTimer
	onFinished FinishedHook

	// assembled is the one-shot guard for the assembler and the finished hook.
	assembled atomic.Bool

	mu          sync.Mutex
	cur         cursor
	attempt     *domain.QuizAttempt
	submission  SubmissionStatus
	submitErr   string
	subscribers map[chan Snapshot]struct{}
}

func NewSession(id, userID string, opts ...SessionOption) *Session {
	s := &Session{
		id:          id,
		userID:      userID,
		now:         time.Now,
		log:         logger.Nop(),
		cur:         cursor{state: StateLoading},
		submission:  SubmissionNone,
		subscribers: make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("attempt_id", id)
	s.timer = NewLevelTimer(s.sched, s.handleTick, s.handleExpiry)
	return s
}

func (s *Session) ID() string { return s.id }

// Start moves the session from Loading into the first level. A malformed
// definition aborts the session and the validation error is returned.
func (s *Session) Start(def domain.QuizDefinition) (Snapshot, error) {
	snap := s.dispatch(loadedEvent{def: def, at: s.now()})
	s.mu.Lock()
	err := s.cur.err
	s.mu.Unlock()
	return snap, err
}

// Abort records a definition load failure; no attempt is assembled.
func (s *Session) Abort(err error) Snapshot {
	return s.dispatch(loadFailedEvent{err: err, at: s.now()})
}

// SelectAnswer answers the current question. Late or duplicate answers are ignored.
func (s *Session) SelectAnswer(option string) Snapshot {
	return s.dispatch(answerEvent{option: option, at: s.now()})
}

// ForceClose closes the current and all remaining levels at once so that an
// attempt is still assembled when the host goes away mid-level.
func (s *Session) ForceClose() Snapshot {
	return s.dispatch(forceCloseEvent{at: s.now()})
}

// State returns the current controller state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.state
}

// Snapshot returns the current read model.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Attempt returns the assembled attempt once the session is Finished.
func (s *Session) Attempt() (domain.QuizAttempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return domain.QuizAttempt{}, false
	}
	return *s.attempt, true
}

// Subscribe returns a channel of snapshots, primed with the current one.
// The caller must invoke cancel to release it.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) dispatch(ev event) Snapshot {
	s.mu.Lock()
	next, effects, accepted := reduce(s.cur, ev)
	if !accepted {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	from := s.cur.state
	s.cur = next

	var finished *domain.QuizAttempt
	for _, eff := range effects {
		switch e := eff.(type) {
		case stopTimerEffect:
			s.timer.Stop()
		case startTimerEffect:
			s.timer.Start(e.seconds, e.gen)
		case levelClosedEffect:
			s.log.Info("level closed",
				"level", e.level.LevelName,
				"reason", e.level.CloseReason,
				"score", e.level.Score,
				"passed", e.level.Passed,
				"unanswered", e.level.Unanswered)
		case finishedEffect:
			if s.assembled.CompareAndSwap(false, true) {
				attempt := AssembleAttempt(AssembleInput{
					AttemptID:  s.id,
					UserID:     s.userID,
					Definition: s.cur.def,
					Levels:     s.cur.closed,
					StartedAt:  s.cur.startedAt,
					EndedAt:    s.cur.endedAt,
				})
				retained := attempt
				s.attempt = &retained
				s.submission = SubmissionPending
				finished = &attempt
			}
		}
	}
	if from != s.cur.state {
		s.log.Debug("session transition", "from", from, "to", s.cur.state)
	}
	if s.cur.state == StateAborted && s.cur.err != nil {
		s.log.Warn("session aborted", "error", s.cur.err)
	}

	snap := s.broadcastLocked()
	hook := s.onFinished
	s.mu.Unlock()

	if finished != nil {
		s.log.Info("attempt assembled", "total_score", finished.TotalScore, "result", finished.Result)
		if hook != nil {
			hook(s, *finished)
		}
	}
	return snap
}

func (s *Session) handleTick(gen uint64, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur.state != StateInLevel || gen != s.cur.timerGen {
		return
	}
	s.broadcastLocked()
}

func (s *Session) handleExpiry(gen uint64) {
	s.dispatch(expiredEvent{gen: gen, at: s.now()})
}

// recordSubmission stores the submission client's verdict.
func (s *Session) recordSubmission(err error) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.submission = SubmissionFailed
		s.submitErr = err.Error()
	} else {
		s.submission = SubmissionAccepted
		s.submitErr = ""
	}
	return s.broadcastLocked()
}

// beginResubmit marks a failed submission as pending again and returns the
// retained attempt. ok is false when there is nothing to send.
func (s *Session) beginResubmit() (attempt domain.QuizAttempt, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return domain.QuizAttempt{}, false, domain.ErrAttemptNotFinished
	}
	if s.submission != SubmissionFailed {
		return *s.attempt, false, nil
	}
	s.submission = SubmissionPending
	s.broadcastLocked()
	return *s.attempt, true, nil
}

// setFeedback attaches post-attempt feedback to the retained attempt.
func (s *Session) setFeedback(feedback string, rating int) (domain.QuizAttempt, SubmissionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return domain.QuizAttempt{}, s.submission, domain.ErrAttemptNotFinished
	}
	s.attempt.Feedback = feedback
	s.attempt.Rating = rating
	s.broadcastLocked()
	return *s.attempt, s.submission, nil
}

func (s *Session) broadcastLocked() Snapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest update so a slow reader never blocks a transition.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() Snapshot {
	c := s.cur
	snap := Snapshot{
		AttemptID:  s.id,
		UserID:     s.userID,
		QuizID:     c.def.ID,
		QuizName:   c.def.Name,
		State:      c.state,
		LevelCount: len(c.def.Levels),
		Submission: s.submission,
	}
	if c.def.ID != "" {
		snap.Kind = c.def.Kind.Normalize()
	}
	if s.submission == SubmissionFailed {
		snap.SubmissionError = s.submitErr
	}
	if c.err != nil {
		snap.Error = c.err.Error()
	}
	for _, la := range c.closed {
		snap.Score += la.Score
	}
	if c.state == StateInLevel {
		level := c.def.Levels[c.levelIdx]
		q := level.Questions[c.questionIdx]
		for _, a := range c.answers {
			snap.Score += a.PointsEarned
		}
		snap.LevelIndex = c.levelIdx
		snap.LevelName = level.Name
		snap.QuestionIndex = c.questionIdx
		snap.QuestionCount = len(level.Questions)
		snap.SecondsRemaining = s.timer.Remaining()
		snap.Question = &QuestionView{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: append([]string(nil), q.Options...),
			Points:  q.Points,
			Hint:    q.Hint,
		}
	} else if c.state == StateFinished {
		snap.LevelIndex = len(c.def.Levels) - 1
	}
	if s.attempt != nil {
		attempt := *s.attempt
		snap.Attempt = &attempt
	}
	return snap
}
