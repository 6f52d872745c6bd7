package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas del editor.
func NewRouter(
	logger *zap.Logger,
	draftH *DraftHandler,
	personaH *PersonaHandler,
	notificationH *NotificationHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/schema", personaH.GetSchema)

	draft := r.Group("/draft")
	draft.GET("", draftH.GetDraft)
	draft.PUT("/name", draftH.SetName)
	draft.PUT("/description", draftH.SetDescription)
	draft.PUT("/traits/:category/:field", draftH.SetTrait)
	draft.POST("/reset", draftH.Reset)
	draft.POST("/save", draftH.Save)
	draft.POST("/import", draftH.Import)
	draft.GET("/export", draftH.Export)
	draft.GET("/progress", draftH.GetProgress)
	draft.PUT("/progress/section", draftH.SelectSection)
	draft.GET("/prompt", draftH.GetPrompt)
	draft.POST("/preview", draftH.Preview)
	draft.POST("/suggest", draftH.SuggestTraits)

	personas := r.Group("/personas")
	personas.GET("", personaH.ListPersonas)
	personas.GET("/:id", personaH.GetPersona)
	personas.GET("/:id/similar", personaH.SimilarPersonas)
	personas.POST("/:id/edit", personaH.EditPersona)
	personas.DELETE("/:id", personaH.DeletePersona)

	notifications := r.Group("/notifications")
	notifications.GET("", notificationH.ListNotifications)
	notifications.DELETE("/:id", notificationH.DismissNotification)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
