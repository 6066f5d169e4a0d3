package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/civicdesk/backend/internal/config"
	"github.com/civicdesk/backend/internal/db"
	"github.com/civicdesk/backend/internal/http/handlers"
	"github.com/civicdesk/backend/internal/http/middleware"
	"github.com/civicdesk/backend/internal/registry"
	"github.com/civicdesk/backend/internal/service"
)

func Router(cfg config.Config, store *db.Store, coordinator *service.Coordinator, reg *registry.Registry, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
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
		Store:       store,
		Coordinator: coordinator,
		Registry:    reg,
		Logger:      logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/items/:id", h.ItemDetails)
		api.GET("/units", h.UnitsList)
		api.GET("/units/:id/workload", h.UnitWorkload)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/items/:id/assign", h.AssignItem)
		admin.POST("/items/:id/reassign", h.ForceReassign)
		admin.POST("/registry/refresh", h.RefreshRegistry)
	}

	return r
}
