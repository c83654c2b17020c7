package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quizhost/internal/app"
	"quizhost/internal/domain"

	"github.com/gorilla/websocket"
)

type WSHandler struct {
	registry *app.Registry
	upgrader websocket.Upgrader
}

func NewWSHandler(registry *app.Registry) *WSHandler {
	return &WSHandler{
		registry: registry,
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

type answerPayload struct {
	Position  int      `json:"position"`
	AnswerIDs []string `json:"answerIds"`
}

type chatPayload struct {
	Body string `json:"body"`
}

type actionPayload struct {
	Action string `json:"action"`
}

type resultPayload struct {
	Position int `json:"position"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type statePayload struct {
	State domain.SessionState `json:"state"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// session lifecycle. Players (`?sessionId=..&name=..`) are joined into the
// lobby and can answer and chat; hosts (`?role=host&sessionId=..`) drive the
// state machine and read results. Both receive status snapshots on every
// session change.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	isHost := r.URL.Query().Get("role") == "host"

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var player domain.Player
	if !isHost {
		player, err = h.registry.Join(r.Context(), sessionID, r.URL.Query().Get("name"))
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
	}

	updates, cancel, err := h.registry.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Queue the join ack before the status pump starts so it is written first.
	if !isHost {
		send <- outboundMessage[any]{Type: "joined", Payload: player}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "status", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if isHost {
			h.handleHostMessage(r, sessionID, inbound, send)
		} else {
			h.handlePlayerMessage(r, player.ID, inbound, send)
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handlePlayerMessage(r *http.Request, playerID string, inbound inboundMessage, send chan<- outboundMessage[any]) {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid answer payload")
			return
		}
		if err := h.registry.SubmitAnswer(r.Context(), playerID, payload.Position, payload.AnswerIDs); err != nil {
			send <- errMsg(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "answerAccepted", Payload: payload}
	case "chat":
		var payload chatPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid chat payload")
			return
		}
		msg, err := h.registry.PostMessage(r.Context(), playerID, payload.Body)
		if err != nil {
			send <- errMsg(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "chatPosted", Payload: msg}
	default:
		send <- errMsg("unsupported message type")
	}
}

func (h *WSHandler) handleHostMessage(r *http.Request, sessionID string, inbound inboundMessage, send chan<- outboundMessage[any]) {
	switch inbound.Type {
	case "action":
		var payload actionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid action payload")
			return
		}
		state, err := h.registry.Dispatch(r.Context(), sessionID, domain.Action(payload.Action))
		if err != nil {
			send <- errMsg(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "state", Payload: statePayload{State: state}}
	case "questionResult":
		var payload resultPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid result payload")
			return
		}
		result, err := h.registry.QuestionResult(r.Context(), sessionID, payload.Position)
		if err != nil {
			send <- errMsg(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "questionResult", Payload: result}
	case "finalResult":
		result, err := h.registry.FinalResult(r.Context(), sessionID)
		if err != nil {
			send <- errMsg(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "finalResult", Payload: result}
	default:
		send <- errMsg("unsupported message type")
	}
}

func errMsg(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
