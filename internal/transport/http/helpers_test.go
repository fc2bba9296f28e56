package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	"quiz-attempt-service/internal/logger"
)

// idleScheduler never ticks; level timers only end through answers or force close.
type idleScheduler struct{}

func (idleScheduler) Every(time.Duration, func()) func() { return func() {} }

type testEnv struct {
	server   *httptest.Server
	sessions *memory.SessionStore
	attempts *memory.AttemptStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sessions := memory.NewSessionStore()
	attempts := memory.NewAttemptStore()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	service := app.NewAttemptService(sessions, quizzes, attempts, app.WithServiceScheduler(idleScheduler{}))

	server := httptest.NewServer(NewRouter(service, logger.Nop()))
	t.Cleanup(server.Close)
	return &testEnv{server: server, sessions: sessions, attempts: attempts}
}

func sampleQuizzes() map[string]domain.QuizDefinition {
	return map[string]domain.QuizDefinition{
		"quiz-1": {
			ID:   "quiz-1",
			Name: "Arithmetic",
			Kind: domain.KindQuiz,
			Levels: []domain.Level{
				{Name: "easy", TimeLimitSeconds: 30, PassingMarks: 2, Questions: []domain.Question{
					{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: "4", Points: 1},
					{ID: "q2", Prompt: "What is 3 * 3?", Options: []string{"6", "9"}, CorrectOption: "9", Points: 2},
				}},
			},
		},
		"puzzle-1": {
			ID:   "puzzle-1",
			Name: "Riddles",
			Kind: domain.KindPuzzle,
			Levels: []domain.Level{
				{Name: "only", TimeLimitSeconds: 10, PassingMarks: 1, Questions: []domain.Question{
					{ID: "p1", Prompt: "What has keys but no locks?", Options: []string{"piano", "door"}, CorrectOption: "piano", Points: 1},
				}},
			},
		},
		"broken": {
			ID:   "broken",
			Kind: domain.KindQuiz,
			Levels: []domain.Level{
				{Name: "bad", TimeLimitSeconds: 10, Questions: []domain.Question{
					{ID: "b1", Prompt: "?", Options: []string{"x"}, CorrectOption: "x", Points: 1},
				}},
			},
		},
	}
}
