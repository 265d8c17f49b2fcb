package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"quizroom/internal/app"
)

// NewRouter wires the REST and websocket surface of the quiz service.
func NewRouter(service *app.QuizService, verifier Verifier, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestID())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(allowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	h := NewHandler(service)
	ws := NewWSHandler(service)

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/ws/leaderboard/:code", ws.ServeLeaderboard)

	api := r.Group("/api")
	api.GET("/quizzes/code/:code", h.getQuiz)
	api.GET("/quizzes/:code/leaderboard", h.leaderboard)
	api.GET("/users/:uid/quizzes", h.createdQuizzes)

	authed := api.Group("", requireAuth(verifier))
	authed.POST("/quizzes/create", h.createQuiz)
	authed.POST("/quizzes/submit", h.submit)
	authed.GET("/me/profile", h.profile)
	authed.PUT("/me/profile", h.updateProfile)
	authed.GET("/me/awards", h.awards)
	authed.GET("/me/activity", h.activity)
	authed.POST("/admin/recompute/:uid", h.recompute)
	authed.POST("/admin/backfill-awards", h.backfill)
	return r
}
