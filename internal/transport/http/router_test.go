package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

func doJSON(t *testing.T, method, url string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRESTAttemptFlow(t *testing.T) {
	env := newTestEnv(t)
	base := env.server.URL

	status, snap := doJSON(t, http.MethodPost, base+"/api/quizzes/quiz-1/attempts", map[string]string{"userId": "u1"})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", status, snap)
	}
	if snap["state"] != string(app.StateInLevel) {
		t.Fatalf("expected inLevel, got %v", snap["state"])
	}
	question := snap["question"].(map[string]any)
	if _, leaked := question["correctOption"]; leaked {
		t.Fatalf("correct option must not be exposed: %v", question)
	}
	id := snap["attemptId"].(string)

	if status, _ := doJSON(t, http.MethodPost, base+"/api/attempts/"+id+"/answers", map[string]string{"option": "4"}); status != http.StatusOK {
		t.Fatalf("first answer: %d", status)
	}
	status, snap = doJSON(t, http.MethodPost, base+"/api/attempts/"+id+"/answers", map[string]string{"option": "9"})
	if status != http.StatusOK || snap["state"] != string(app.StateFinished) {
		t.Fatalf("expected finished, got %d %v", status, snap["state"])
	}
	if snap["submission"] != string(app.SubmissionAccepted) {
		t.Fatalf("expected accepted submission, got %v", snap["submission"])
	}
	attempt := snap["attempt"].(map[string]any)
	if attempt["totalScore"] != float64(3) || attempt["result"] != string(domain.ResultPassed) {
		t.Fatalf("unexpected attempt: %v", attempt)
	}

	if status, _ := doJSON(t, http.MethodPost, base+"/api/attempts/"+id+"/feedback", map[string]any{"feedback": "nice", "rating": 9}); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad rating, got %d", status)
	}
	if status, _ := doJSON(t, http.MethodPost, base+"/api/attempts/"+id+"/feedback", map[string]any{"feedback": "nice", "rating": 5}); status != http.StatusOK {
		t.Fatalf("expected 200 for feedback, got %d", status)
	}
	stored, ok := env.attempts.Get(id)
	if !ok || stored.Feedback != "nice" || stored.Rating != 5 {
		t.Fatalf("feedback not persisted: %+v", stored)
	}

	if status, _ := doJSON(t, http.MethodDelete, base+"/api/attempts/"+id, nil); status != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", status)
	}
	if status, _ := doJSON(t, http.MethodGet, base+"/api/attempts/"+id, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}

func TestRESTForceClose(t *testing.T) {
	env := newTestEnv(t)
	base := env.server.URL

	_, snap := doJSON(t, http.MethodPost, base+"/api/puzzles/puzzle-1/attempts", map[string]string{"userId": "u2"})
	id := snap["attemptId"].(string)

	status, snap := doJSON(t, http.MethodPost, base+"/api/attempts/"+id+"/close", nil)
	if status != http.StatusOK || snap["state"] != string(app.StateFinished) {
		t.Fatalf("expected finished after close, got %d %v", status, snap["state"])
	}
	stored, ok := env.attempts.Get(id)
	if !ok || stored.Kind != domain.KindPuzzle || stored.TotalScore != 0 || stored.Levels[0].Unanswered != 1 {
		t.Fatalf("unexpected stored attempt: %+v", stored)
	}

	// Retrying an accepted submission is a no-op.
	if status, _ := doJSON(t, http.MethodPost, base+"/api/attempts/"+id+"/submit", nil); status != http.StatusOK {
		t.Fatalf("expected 200 on retry, got %d", status)
	}
}

func TestRESTStartErrors(t *testing.T) {
	env := newTestEnv(t)
	base := env.server.URL

	cases := []struct {
		path string
		body any
		want int
	}{
		{"/api/quizzes/missing/attempts", map[string]string{"userId": "u"}, http.StatusNotFound},
		{"/api/puzzles/quiz-1/attempts", map[string]string{"userId": "u"}, http.StatusConflict},
		{"/api/quizzes/broken/attempts", map[string]string{"userId": "u"}, http.StatusUnprocessableEntity},
		{"/api/quizzes/quiz-1/attempts", map[string]string{}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		status, body := doJSON(t, http.MethodPost, base+tc.path, tc.body)
		if status != tc.want {
			t.Fatalf("%s: expected %d, got %d (%v)", tc.path, tc.want, status, body)
		}
		if body["error"] == nil {
			t.Fatalf("%s: expected error message", tc.path)
		}
	}
	if env.sessions.Len() != 0 {
		t.Fatalf("failed starts must not keep sessions, have %d", env.sessions.Len())
	}
}

func TestRESTUnknownAttempt(t *testing.T) {
	env := newTestEnv(t)
	status, _ := doJSON(t, http.MethodPost, env.server.URL+"/api/attempts/nope/answers", map[string]string{"option": "x"})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}
