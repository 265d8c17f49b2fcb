// Package client talks to a quiz server over REST and the live leaderboard websocket.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"quizroom/internal/domain"
	"quizroom/internal/reconcile"
	"quizroom/internal/session"
)

const sessionHeader = "X-Client-Session"

var (
	_ session.Backend       = (*Client)(nil)
	_ reconcile.Fetcher     = (*Client)(nil)
	_ reconcile.Subscriber  = (*Client)(nil)
	_ reconcile.TitleLookup = (*Client)(nil)
)

// Client is the remote collaborator of the session machine and the leaderboard watcher.
type Client struct {
	rest      *resty.Client
	baseURL   string
	sessionID string
}

// New returns a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL = strings.TrimRight(baseURL, "/")
	id := uuid.NewString()
	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader(sessionHeader, id)
	return &Client{rest: rest, baseURL: baseURL, sessionID: id}
}

// SessionID is sent as the X-Client-Session header on every request.
func (c *Client) SessionID() string { return c.sessionID }

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) FetchQuiz(ctx context.Context, code string) (domain.Quiz, error) {
	var quiz domain.Quiz
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("code", code).
		SetResult(&quiz).
		SetError(&apiError{}).
		Get("/api/quizzes/code/{code}")
	if err := check(resp, err, domain.ErrQuizNotFound); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// Submit sends a finished attempt. An empty token fails with domain.ErrAuthRequired without a request.
func (c *Client) Submit(ctx context.Context, token string, sub domain.Submission) (domain.ScoreResult, error) {
	if token == "" {
		return domain.ScoreResult{}, domain.ErrAuthRequired
	}
	var result domain.ScoreResult
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(sub).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/api/quizzes/submit")
	if err := check(resp, err, domain.ErrQuizNotFound); err != nil {
		return domain.ScoreResult{}, err
	}
	return result, nil
}

func (c *Client) FetchLeaderboard(ctx context.Context, code string) ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("code", code).
		SetResult(&entries).
		SetError(&apiError{}).
		Get("/api/quizzes/{code}/leaderboard")
	if err := check(resp, err, domain.ErrQuizNotFound); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) FetchCreated(ctx context.Context, uid string) ([]domain.CreatedQuiz, error) {
	var created []domain.CreatedQuiz
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("uid", uid).
		SetResult(&created).
		SetError(&apiError{}).
		Get("/api/users/{uid}/quizzes")
	if err := check(resp, err, domain.ErrProfileNotFound); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *Client) QuizTitle(ctx context.Context, code string) (string, error) {
	quiz, err := c.FetchQuiz(ctx, code)
	if err != nil {
		return "", err
	}
	return quiz.Title, nil
}

// check maps a resty outcome onto domain errors; notFound is used for 404 responses.
func check(resp *resty.Response, err error, notFound error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	if !resp.IsError() {
		return nil
	}
	msg := resp.Status()
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Error != "" {
		msg = apiErr.Error
	}
	switch resp.StatusCode() {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", notFound, msg)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrAuthRequired, msg)
	case http.StatusBadRequest:
		return domain.Invalid("request", msg)
	}
	return fmt.Errorf("%w: status %d: %s", domain.ErrTransport, resp.StatusCode(), msg)
}
