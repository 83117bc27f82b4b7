package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"monthly-quiz-service/internal/app"
)

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

type emailPayload struct {
	Email string `json:"email"`
}

type answerPayload struct {
	Option int `json:"option"`
}

type stepPayload struct {
	Step      app.FlowStep `json:"step"`
	Question  *wsQuestion  `json:"question,omitempty"`
	Position  int          `json:"position,omitempty"`
	Total     int          `json:"total,omitempty"`
	ReviewURL string       `json:"reviewUrl,omitempty"`
}

type wsQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type resultPayload struct {
	SubmissionID string `json:"submissionId"`
}

// handleTakeWS drives one participant through the quiz flow over a websocket:
// the server owns the state machine, the client only sends intents
// (begin, email, answer, previous, submit).
func (h *Handler) handleTakeWS(w http.ResponseWriter, r *http.Request) {
	flow, err := h.public.Start(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := func(msg any) bool {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error: %v", err)
			return false
		}
		return true
	}
	sendErr := func(err error) bool {
		return send(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}
	sendStep := func() bool {
		payload := stepPayload{Step: flow.Step()}
		if flow.Step() == app.StepQuestions && len(flow.Questions()) > 0 {
			question, pos := flow.CurrentQuestion()
			payload.Question = &wsQuestion{ID: question.ID, Text: question.Text, Options: question.VisibleOptions()}
			payload.Position = pos
			payload.Total = len(flow.Questions())
		}
		if flow.Step() == app.StepReview {
			payload.ReviewURL = flow.ReviewURL()
		}
		return send(outboundMessage[stepPayload]{Type: "step", Payload: payload})
	}

	if !send(outboundMessage[publicQuizResponse]{Type: "quiz", Payload: toPublicQuiz(flow.Quiz(), flow.Questions())}) {
		return
	}
	if !sendStep() {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		var intentErr error
		switch inbound.Type {
		case "begin":
			intentErr = flow.Begin()
		case "email":
			var payload emailPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				intentErr = errors.New("invalid email payload")
			} else {
				intentErr = flow.EnterEmail(r.Context(), payload.Email)
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				intentErr = errors.New("invalid answer payload")
			} else {
				intentErr = flow.SelectAnswer(payload.Option)
			}
		case "previous":
			flow.Previous()
		case "submit":
			if intentErr = flow.Submit(r.Context()); intentErr == nil {
				if !send(outboundMessage[resultPayload]{Type: "submitted", Payload: resultPayload{SubmissionID: flow.Result().ID}}) {
					return
				}
			}
		default:
			intentErr = errors.New("unsupported message type")
		}

		// The current step is re-announced after every intent, failed ones
		// included, so the client never drifts out of sync.
		if intentErr != nil && !sendErr(intentErr) {
			return
		}
		if !sendStep() {
			return
		}
		if flow.Step() == app.StepReview {
			return
		}
	}
}
