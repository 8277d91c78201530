package handler

import (
	"net/http"
	"time"

	"luca-backend/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg *config.Config, chat *ChatHandler, prefs *PreferencesHandler) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	api := router.Group("/api")
	{
		api.GET("/translations/:lang", chat.Translations)

		conv := api.Group("/conversations")
		{
			conv.POST("", chat.CreateConversation)
			conv.GET("", chat.ListConversations)
			conv.GET("/:id", chat.GetConversation)
			conv.DELETE("/:id", chat.DeleteConversation)
			conv.POST("/:id/messages", chat.SendMessage)
			conv.POST("/:id/reactions", chat.React)
			conv.POST("/:id/clear", chat.Clear)
			conv.PUT("/:id/language", chat.SetLanguage)
			conv.GET("/:id/export", chat.Export)
		}

		api.GET("/preferences/:client_id", prefs.Get)
		api.PUT("/preferences/:client_id", prefs.Put)
	}

	return router
}
