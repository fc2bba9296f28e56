package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/logger"
)

// NewRouter exposes the attempt use cases over REST and the websocket stream.
func NewRouter(service *app.AttemptService, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	h := &attemptHandlers{service: service, log: log}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", NewWSHandler(service, log).ServeWS)

	r.Post("/api/quizzes/{quizID}/attempts", h.start(domain.KindQuiz))
	r.Post("/api/puzzles/{quizID}/attempts", h.start(domain.KindPuzzle))

	r.Route("/api/attempts/{attemptID}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Delete("/", h.abandon)
		r.Post("/answers", h.answer)
		r.Post("/close", h.forceClose)
		r.Post("/submit", h.retry)
		r.Post("/feedback", h.feedback)
	})
	return r
}

func requestLogger(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
