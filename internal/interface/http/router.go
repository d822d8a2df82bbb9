// Package http 下单服务的HTTP接口:路由、处理器和中间件
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/xiebiao/bookorder/internal/infrastructure/config"
	"github.com/xiebiao/bookorder/internal/interface/http/handler"
	"github.com/xiebiao/bookorder/internal/interface/http/middleware"
	"github.com/xiebiao/bookorder/pkg/response"
)

// NewRouter 创建Gin引擎并注册路由
//
//	GET  /ping             健康检查
//	GET  /metrics          Prometheus指标(metrics.enabled)
//	GET  /swagger/*any     API文档(非release模式)
//	POST /api/v1/orders    下单(需要登录)
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	orderHandler *handler.OrderHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logger(logger))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
	}

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// 生产环境不暴露文档
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		orders.Use(authMiddleware.RequireAuth())
		{
			orders.POST("", orderHandler.PlaceOrder)
		}
	}

	return r
}
