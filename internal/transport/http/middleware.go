package http

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"quizroom/internal/auth"
	"quizroom/internal/domain"
)

const (
	identityKey     = "identity"
	requestIDHeader = "X-Request-ID"
)

var errTokenExpired = fmt.Errorf("%w: token expired", domain.ErrAuthRequired)

// Verifier validates identity tokens.
type Verifier interface {
	Verify(token string) (auth.Identity, error)
}

// requestID tags every request with an id, reusing the caller's when present.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requireAuth rejects requests without a valid "Bearer <token>" header.
func requireAuth(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(c, domain.ErrAuthRequired)
			return
		}
		id, err := verifier.Verify(strings.TrimSpace(parts[1]))
		if auth.IsExpired(err) {
			writeError(c, errTokenExpired)
			return
		}
		if err != nil {
			writeError(c, domain.ErrAuthRequired)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func identityFrom(c *gin.Context) auth.Identity {
	v, _ := c.Get(identityKey)
	id, _ := v.(auth.Identity)
	return id
}
