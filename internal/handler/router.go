package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig holds the router-level settings.
type RouterConfig struct {
	AllowOrigins []string
	APIToken     string
}

// NewRouter wires the handler into a gin engine.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.Logger))

	if len(cfg.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", SessionHeader},
			ExposeHeaders:    []string{SessionHeader},
			AllowCredentials: true,
		}))
	}

	r.GET("/", h.Index)
	r.GET("/health", h.Health)

	api := r.Group("/api", AuthMiddleware(cfg.APIToken))
	{
		api.POST("/forecast", h.Forecast)
		api.GET("/forecast/:session", h.GetSession)
		api.DELETE("/forecast/:session", h.CloseSession)

		api.GET("/history", h.ListHistory)
		api.GET("/history/:id", h.GetHistory)
	}

	return r
}

func requestLogger(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}
