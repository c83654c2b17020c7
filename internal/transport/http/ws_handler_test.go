package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizhost/internal/app"
	"quizhost/internal/domain"
	"quizhost/internal/infra/memory"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.Registry) {
	t.Helper()
	store := memory.NewSessionStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	registry := app.NewRegistry(store, quizRepo, app.NewTimerService(), 3*time.Second)

	wsHandler := NewWSHandler(registry)
	apiHandler := NewAPIHandler(registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, registry
}

func TestWebSocketAnswerFlow(t *testing.T) {
	server, registry := newTestServer(t)

	session, err := registry.CreateSession(context.Background(), "quiz-1", 0)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/ws?sessionId=" + session.ID() + "&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect joined event first, then the initial status snapshot.
	msgType, payload := readNext(conn, t, "joined")
	if payload["name"] != "Alice" {
		t.Fatalf("expected joined payload for Alice, got %v", payload)
	}
	_ = msgType

	// Drive the session to QUESTION_OPEN from the host side.
	if _, err := registry.Dispatch(context.Background(), session.ID(), domain.ActionNextQuestion); err != nil {
		t.Fatalf("next question: %v", err)
	}
	if _, err := registry.Dispatch(context.Background(), session.ID(), domain.ActionSkipCountdown); err != nil {
		t.Fatalf("skip countdown: %v", err)
	}

	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"position":  1,
			"answerIds": []string{"a1"},
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	// Expect answerAccepted among the pushed status updates.
	accepted := false
	for i := 0; i < 6 && !accepted; i++ {
		typ, _ := readNext(conn, t, "")
		if typ == "answerAccepted" {
			accepted = true
		}
		if typ == "error" {
			t.Fatalf("unexpected error message")
		}
	}
	if !accepted {
		t.Fatalf("expected answerAccepted")
	}
}

func TestWebSocketHostDrivesSession(t *testing.T) {
	server, registry := newTestServer(t)

	session, err := registry.CreateSession(context.Background(), "quiz-1", 0)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/ws?sessionId=" + session.ID() + "&role=host"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readNext(conn, t, "status") // initial snapshot

	action := map[string]any{
		"type":    "action",
		"payload": map[string]any{"action": "NEXT_QUESTION"},
	}
	if err := conn.WriteJSON(action); err != nil {
		t.Fatalf("write action: %v", err)
	}

	// A state ack and a status update both arrive; order is not fixed.
	sawState := false
	sawCountdown := false
	for i := 0; i < 4 && !(sawState && sawCountdown); i++ {
		typ, payload := readNext(conn, t, "")
		switch typ {
		case "state":
			sawState = true
			if payload["state"] != string(domain.StateQuestionCountdown) {
				t.Fatalf("expected countdown ack, got %v", payload)
			}
		case "status":
			if payload["state"] == string(domain.StateQuestionCountdown) {
				sawCountdown = true
			}
		}
	}
	if !sawState || !sawCountdown {
		t.Fatalf("expected state ack and countdown status, got ack=%v status=%v", sawState, sawCountdown)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:     "quiz-1",
			Name:   "Basics",
			Active: true,
			Questions: []domain.Question{
				{
					ID:       "q1",
					Text:     "What is 2 + 2?",
					Duration: 60,
					Points:   5,
					Answers: []domain.Answer{
						{ID: "a1", Text: "4", Correct: true, Colour: "green"},
						{ID: "a2", Text: "5", Correct: false, Colour: "red"},
					},
				},
			},
		},
	}
}
