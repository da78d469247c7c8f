// router.go - Route table and middleware for the HTTP API.

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bosocmputer/doubtsolver/internal/logger"
)

// NewRouter wires every route onto a gin engine
func NewRouter(h *Handler, allowedOrigins string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), corsMiddleware(allowedOrigins))
	if h.maxUploadBytes > 0 {
		// base64 bodies are a third larger than the image they carry
		router.Use(maxBodyBytes(h.maxUploadBytes * 2))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "doubtsolver",
			"version": apiVersion,
		})
	})

	api := router.Group("/api")
	api.GET("/", h.Root)
	api.POST("/status", h.CreateStatusCheck)
	api.GET("/status", h.ListStatusChecks)

	requireUser := h.auth.RequireUser()

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.GET("/me", requireUser, h.Me)
	authGroup.POST("/logout", requireUser, h.Logout)

	doubts := api.Group("/doubts")
	doubts.POST("/demo", h.CreateDemoDoubt)
	doubts.POST("/", requireUser, h.CreateDoubt)
	doubts.GET("/", requireUser, h.ListDoubts)
	doubts.GET("/:id", requireUser, h.GetDoubt)
	doubts.DELETE("/:id", requireUser, h.DeleteDoubt)

	chatGroup := api.Group("/chat", requireUser)
	chatGroup.POST("/send", h.SendMessage)
	chatGroup.GET("/messages", h.ListMessages)

	ocrGroup := api.Group("/ocr", requireUser)
	ocrGroup.POST("/extract", h.ExtractText)
	ocrGroup.POST("/validate", h.ValidateImage)
	ocrGroup.POST("/regions", h.LocateRegions)

	return router
}

func corsMiddleware(allowedOrigins string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func maxBodyBytes(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// requestLogger tags each request with an id and logs its outcome
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		l := logger.WithRequestID(requestID)
		event := l.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = l.Error()
		}
		event.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// abort writes the error body used by every endpoint
func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
