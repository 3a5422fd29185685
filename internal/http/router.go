package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/config"
	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/db"
	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/http/handlers"
	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/http/middleware"
	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/service"

	_ "github.com/JuanMolinaNavarro/Metricas-WhatsApp/docs"
)

func Router(cfg config.Config, store *db.Store, ingestor *service.Ingestor, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Webhook-Secret", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Ingestor:  ingestor,
		Validator: validator.New(),
		Logger:    logger,
	}

	r.GET("/healthz", h.Healthz)

	hooks := r.Group("/webhooks")
	hooks.Use(middleware.WebhookSecret(cfg.WebhookSecret))
	{
		hooks.POST("/callbell", h.Webhook)
	}

	api := r.Group("/api")
	{
		api.POST("/auth/login", h.Login)

		metrics := api.Group("/metrics")
		{
			metrics.GET("/cases-attended", h.CasesAttended)
			metrics.GET("/cases-attended/summary", h.CasesAttendedSummary)
			metrics.GET("/teams", h.TeamMetrics)
			metrics.GET("/teams/:uuid/daily", h.TeamDaily)
			metrics.GET("/first-response", h.FirstResponse)
			metrics.GET("/first-response/sla", h.FirstResponseSLA)
			metrics.GET("/first-response/agents", h.FirstResponseAgents)
			metrics.GET("/first-response/agents/ranking", h.FirstResponseRanking)
			metrics.GET("/resolution", h.Resolution)
		}

		users := api.Group("/users")
		users.Use(middleware.AdminKey(cfg.AdminKey))
		{
			users.POST("", h.UserCreate)
			users.GET("", h.UserList)
			users.PUT("/:id", h.UserUpdate)
			users.PATCH("/:id/deactivate", h.UserDeactivate)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
