package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"quizroom/internal/app"
	"quizroom/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// LiveMessage is one frame of the live leaderboard stream.
type LiveMessage struct {
	Type    string                    `json:"type"`
	Code    string                    `json:"code"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

const liveMessageType = "leaderboard"

// ServeLeaderboard streams a full room snapshot on every live change. The first frame is the
// current snapshot.
func (h *WSHandler) ServeLeaderboard(c *gin.Context) {
	code := app.NormalizeCode(c.Param("code"))
	updates, cancel, err := h.service.Subscribe(c.Request.Context(), code)
	if err != nil {
		writeError(c, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	readerDone := make(chan struct{})
	// the stream is one-way; reading only detects the client going away
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if snapshot == nil {
				snapshot = []domain.LeaderboardEntry{}
			}
			if err := conn.WriteJSON(LiveMessage{Type: liveMessageType, Code: code, Entries: snapshot}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-readerDone:
			return
		}
	}
}
