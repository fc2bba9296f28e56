package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/logger"
)

type WSHandler struct {
	service  *app.AttemptService
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService, log *logger.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, starts an attempt and streams its snapshots.
// Dropping the socket abandons the attempt, which force-closes and submits it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	kind := domain.Kind(r.URL.Query().Get("kind")).Normalize()
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	started, err := h.service.StartAttempt(r.Context(), kind, quizID, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	attemptID := started.AttemptID
	log := h.log.With("attempt_id", attemptID)

	updates, cancel, err := h.service.Subscribe(r.Context(), attemptID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	sendError := func(err error) {
		select {
		case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.handle(r.Context(), attemptID, inbound); err != nil {
			sendError(err)
		}
	}

	close(closeSignals)
	<-updatesDone
	cancel()
	close(send)
	<-writerDone

	if _, err := h.service.Abandon(context.Background(), attemptID); err != nil && !app.IsNotFound(err) {
		log.Warn("abandon failed", "error", err)
	}
}

type answerMessage struct {
	Option string `json:"option"`
}

type feedbackMessage struct {
	Feedback string `json:"feedback"`
	Rating   int    `json:"rating"`
}

func (h *WSHandler) handle(ctx context.Context, attemptID string, msg inboundMessage) error {
	switch msg.Type {
	case "answer":
		var payload answerMessage
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		_, err := h.service.SelectAnswer(ctx, attemptID, payload.Option)
		return err
	case "forceClose":
		_, err := h.service.ForceClose(ctx, attemptID)
		return err
	case "retry":
		_, err := h.service.RetrySubmission(ctx, attemptID)
		return err
	case "feedback":
		var payload feedbackMessage
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		_, err := h.service.RecordFeedback(ctx, attemptID, payload.Feedback, payload.Rating)
		return err
	default:
		return errUnsupportedMessage
	}
}
