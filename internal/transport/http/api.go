package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"quizhost/internal/app"
	"quizhost/internal/domain"
)

// APIHandler exposes the session lifecycle over plain HTTP for callers that
// do not hold a websocket (session creation, polling status and results).
type APIHandler struct {
	registry *app.Registry
}

func NewAPIHandler(registry *app.Registry) *APIHandler {
	return &APIHandler{registry: registry}
}

// Register mounts the routes on the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions/{id}", h.status)
	mux.HandleFunc("POST /sessions/{id}/actions", h.dispatch)
	mux.HandleFunc("GET /sessions/{id}/results/{position}", h.questionResult)
	mux.HandleFunc("GET /sessions/{id}/results", h.finalResult)
	mux.HandleFunc("GET /sessions/{id}/messages", h.messages)
}

type createSessionRequest struct {
	QuizID       string `json:"quizId"`
	AutoStartNum int    `json:"autoStartNum"`
}

type createSessionResponse struct {
	SessionID string              `json:"sessionId"`
	State     domain.SessionState `json:"state"`
}

type dispatchRequest struct {
	Action string `json:"action"`
}

func (h *APIHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	session, err := h.registry.CreateSession(r.Context(), req.QuizID, req.AutoStartNum)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: session.ID(),
		State:     session.State(),
	})
}

func (h *APIHandler) status(w http.ResponseWriter, r *http.Request) {
	status, err := h.registry.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *APIHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	state, err := h.registry.Dispatch(r.Context(), r.PathValue("id"), domain.Action(req.Action))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statePayload{State: state})
}

func (h *APIHandler) questionResult(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(r.PathValue("position"))
	if err != nil {
		http.Error(w, "invalid question position", http.StatusBadRequest)
		return
	}
	result, err := h.registry.QuestionResult(r.Context(), r.PathValue("id"), position)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) finalResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.registry.FinalResult(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) messages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.registry.Messages(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps core error kinds onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrPlayerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTooManySessions):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
