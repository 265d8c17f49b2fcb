package client

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"quizroom/internal/domain"
)

type liveMessage struct {
	Type    string                    `json:"type"`
	Code    string                    `json:"code"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// SubscribeLeaderboard opens the live websocket for a room and calls onSnapshot with every
// full snapshot it delivers. The returned function closes the stream and waits for the reader.
func (c *Client) SubscribeLeaderboard(ctx context.Context, code string, onSnapshot func([]domain.LeaderboardEntry)) (func(), error) {
	u, err := c.liveURL(code)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set(sessionHeader, c.sessionID)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, code)
		}
		return nil, fmt.Errorf("%w: dial live leaderboard: %v", domain.ErrTransport, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg liveMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !strings.Contains(err.Error(), "use of closed network connection") {
					log.Printf("live leaderboard %s closed: %v", code, err)
				}
				return
			}
			if msg.Type != "leaderboard" {
				continue
			}
			onSnapshot(msg.Entries)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = conn.Close()
			<-done
		})
	}, nil
}

func (c *Client) liveURL(code string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: bad base url: %v", domain.ErrTransport, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/leaderboard/" + url.PathEscape(code)
	return u.String(), nil
}
