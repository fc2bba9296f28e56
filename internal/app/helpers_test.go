package app

import (
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"
)

// manualScheduler fires registered callbacks only when the test calls Tick.
type manualScheduler struct {
	mu   sync.Mutex
	next int
	jobs map[int]func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{jobs: make(map[int]func())}
}

func (m *manualScheduler) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.jobs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.jobs, id)
		m.mu.Unlock()
	}
}

func (m *manualScheduler) Tick(n int) {
	for i := 0; i < n; i++ {
		m.mu.Lock()
		fns := make([]func(), 0, len(m.jobs))
		for _, fn := range m.jobs {
			fns = append(fns, fn)
		}
		m.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
}

func (m *manualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func question(id, correct string, points int) domain.Question {
	return domain.Question{
		ID:            id,
		Prompt:        "Question " + id,
		Options:       []string{correct, "wrong-" + id},
		CorrectOption: correct,
		Points:        points,
	}
}

func singleLevelQuiz(limit, passing int, questions ...domain.Question) domain.QuizDefinition {
	return domain.QuizDefinition{
		ID:   "quiz-1",
		Name: "Single",
		Levels: []domain.Level{
			{Name: "easy", TimeLimitSeconds: limit, PassingMarks: passing, Questions: questions},
		},
	}
}

func twoLevelQuiz() domain.QuizDefinition {
	return domain.QuizDefinition{
		ID:   "quiz-2",
		Name: "Two levels",
		Kind: domain.KindPuzzle,
		Levels: []domain.Level{
			{Name: "easy", TimeLimitSeconds: 30, PassingMarks: 2, Questions: []domain.Question{
				question("e1", "a", 2),
				question("e2", "b", 2),
			}},
			{Name: "hard", TimeLimitSeconds: 20, PassingMarks: 3, Questions: []domain.Question{
				question("h1", "c", 3),
				question("h2", "d", 3),
			}},
		},
	}
}

type hookRecorder struct {
	mu       sync.Mutex
	attempts []domain.QuizAttempt
}

func (h *hookRecorder) hook(_ *Session, attempt domain.QuizAttempt) {
	h.mu.Lock()
	h.attempts = append(h.attempts, attempt)
	h.mu.Unlock()
}

func (h *hookRecorder) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.attempts)
}

func newTestSession(sched *manualScheduler, clock *fakeClock, hooks *hookRecorder) *Session {
	return NewSession("attempt-1", "user-1",
		WithScheduler(sched),
		WithClock(clock.Now),
		WithFinishedHook(hooks.hook),
	)
}
