package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quizroom/internal/app"
	"quizroom/internal/domain"
	"quizroom/internal/progression"
)

type Handler struct {
	service *app.QuizService
}

func NewHandler(service *app.QuizService) *Handler {
	return &Handler{service: service}
}

type submitRequest struct {
	QuizCode        string          `json:"quizCode"`
	Name            string          `json:"name"`
	DurationSeconds int             `json:"durationSeconds"`
	Answers         []domain.Answer `json:"answers"`
}

type profileResponse struct {
	Profile domain.UserProfile `json:"profile"`
	View    progression.View   `json:"progress"`
}

type profileUpdate struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

type awardsResponse struct {
	Awards []domain.Award      `json:"awards"`
	Series []progression.Point `json:"series"`
}

type backfillRequest struct {
	QuizCode string `json:"quizCode"`
}

func (h *Handler) getQuiz(c *gin.Context) {
	quiz, err := h.service.GetQuiz(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) createQuiz(c *gin.Context) {
	var quiz domain.Quiz
	if err := c.ShouldBindJSON(&quiz); err != nil {
		writeError(c, domain.Invalid("body", err.Error()))
		return
	}
	id := identityFrom(c)
	created, err := h.service.CreateQuiz(c.Request.Context(), id.UID, id.Name, quiz)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.Invalid("body", err.Error()))
		return
	}
	id := identityFrom(c)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = id.Name
	}
	result, err := h.service.Submit(c.Request.Context(), domain.Submission{
		QuizCode:        req.QuizCode,
		ParticipantName: name,
		DurationSeconds: req.DurationSeconds,
		Answers:         req.Answers,
		UID:             id.UID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) leaderboard(c *gin.Context) {
	entries, err := h.service.Leaderboard(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) createdQuizzes(c *gin.Context) {
	created, err := h.service.CreatedQuizzes(c.Request.Context(), c.Param("uid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *Handler) profile(c *gin.Context) {
	id := identityFrom(c)
	profile, view, err := h.service.Profile(c.Request.Context(), id.UID, id.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse{Profile: profile, View: view})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req profileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.Invalid("body", err.Error()))
		return
	}
	id := identityFrom(c)
	if err := h.service.UpdateProfile(c.Request.Context(), id.UID, req.Name, req.Bio); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) awards(c *gin.Context) {
	awards, series, err := h.service.Awards(c.Request.Context(), identityFrom(c).UID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, awardsResponse{Awards: awards, Series: series})
}

func (h *Handler) activity(c *gin.Context) {
	items, err := h.service.RecentActivity(c.Request.Context(), identityFrom(c).UID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) recompute(c *gin.Context) {
	if err := h.service.Recompute(c.Request.Context(), c.Param("uid")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) backfill(c *gin.Context) {
	var req backfillRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, domain.Invalid("body", err.Error()))
			return
		}
	}
	report, err := h.service.BackfillRankAwards(c.Request.Context(), req.QuizCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
