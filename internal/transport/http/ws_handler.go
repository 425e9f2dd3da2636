package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quizlytic-service/internal/app"
	"quizlytic-service/internal/domain"
)

// WSHandler streams live leaderboard updates over a websocket. The stream is
// one-way: clients receive a snapshot on connect and a new one after every
// submission.
type WSHandler struct {
	attempts *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type leaderboardMessage struct {
	Type    string                    `json:"type"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// ServeWS upgrades the request and forwards leaderboard snapshots until the
// client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	updates, cancel, err := h.attempts.Subscribe(r.Context(), quizID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Drain the client's side so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case entries, ok := <-updates:
			if !ok {
				return
			}
			if entries == nil {
				entries = []domain.LeaderboardEntry{}
			}
			if err := conn.WriteJSON(leaderboardMessage{Type: "leaderboard", Entries: entries}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
