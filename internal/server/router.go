package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pictovoice/pictovoice-backend/internal/handlers"
	"github.com/pictovoice/pictovoice-backend/internal/middleware"
)

type RouterConfig struct {
	AllowOrigins       []string
	KeywordHandler     *handlers.KeywordHandler
	PictogramHandler   *handlers.PictogramHandler
	VoiceHandler       *handlers.VoiceHandler
	AdminKeyMiddleware *middleware.AdminKeyMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	allowOrigins := cfg.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Admin-Api-Key"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api/v1")
	{
		api.GET("/keywords", cfg.KeywordHandler.List)
		api.GET("/keywords/:id", cfg.KeywordHandler.GetByID)
		api.GET("/keywords/name/:name", cfg.KeywordHandler.GetByName)
		api.GET("/keywords/audio/:name", cfg.KeywordHandler.GetAudioByName)
		api.GET("/keywords/:id/generation", cfg.KeywordHandler.GetLatestRun)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api/v1")
	protected.Use(cfg.AdminKeyMiddleware.RequireAdminKey())
	// Keywords
	protected.POST("/keywords", cfg.KeywordHandler.Create)
	protected.PATCH("/keywords/:id", cfg.KeywordHandler.Update)
	protected.DELETE("/keywords/:id", cfg.KeywordHandler.Delete)
	// Synchronous generation
	protected.POST("/pictogram/generate", cfg.PictogramHandler.Generate)
	protected.POST("/voice/generate", cfg.VoiceHandler.Generate)

	return router
}
