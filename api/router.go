package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pansearch/config"
	"pansearch/service"
	"pansearch/util"
	"pansearch/util/logger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, searchService *service.SearchService) (*gin.Engine, error) {
	log := logger.Named("api")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(LoggerMiddleware(log))
	if cfg.MetricsEnabled {
		r.Use(MetricsMiddleware())
	}
	if cfg.RateLimitRPS > 0 {
		r.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}
	if cfg.EnableCompression {
		r.Use(util.GzipMiddleware(cfg.MinSizeToCompress))
	}

	searchHandlers := []gin.HandlerFunc{SearchHandler(searchService, log)}
	if cfg.AuthEnabled {
		auth, err := NewTokenAuth(cfg.AuthJWTSecret)
		if err != nil {
			return nil, err
		}
		searchHandlers = append([]gin.HandlerFunc{AuthMiddleware(auth)}, searchHandlers...)
	}

	api := r.Group("/api")
	{
		api.GET("/search", searchHandlers...)
		api.POST("/search", searchHandlers...)
		api.GET("/health", HealthHandler(searchService))
	}

	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return r, nil
}
