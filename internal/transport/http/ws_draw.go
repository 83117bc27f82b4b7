package http

import (
	"log"
	"net/http"

	"monthly-quiz-service/internal/app"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type drawFrame struct {
	app.DrawUpdate
	Error string `json:"error,omitempty"`
}

// handleDrawWS runs the winner draw for a quiz and streams each animation
// frame to the connected admin. The guard runs before the upgrade so an
// unauthorized caller never holds a socket.
func (h *Handler) handleDrawWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if _, err := h.auth.Authorize(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	updates, err := h.draw.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		// Returning cancels the request context; the draw reverts to idle
		// without writing a winner.
		go func() {
			for range updates {
			}
		}()
		return
	}
	defer conn.Close()

	for update := range updates {
		frame := drawFrame{DrawUpdate: update}
		if update.Err != nil {
			frame.Error = update.Err.Error()
		}
		if err := conn.WriteJSON(frame); err != nil {
			log.Printf("ws write error: %v", err)
			for range updates {
			}
			return
		}
	}
}
