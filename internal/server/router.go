package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lunahealth/moodtrack-backend/internal/handlers"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/envutil"
)

type RouterConfig struct {
	BotHandler *handlers.BotHandler
}

// NewRouter wires the webhook endpoint. When WEBHOOK_SECRET is set, updates
// must carry it in X-Webhook-Secret; the healthcheck stays open either way.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "X-Webhook-Secret"},
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	webhook := router.Group("/")
	if secret := envutil.String("WEBHOOK_SECRET", ""); secret != "" {
		webhook.Use(requireSecret(secret))
	}
	webhook.POST("/webhook", cfg.BotHandler.Webhook)

	return router
}

func requireSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Webhook-Secret") != secret {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
