package api

import (
	"net/http"

	"backend/internal/auth"
	"backend/internal/metrics"
	middlewarepkg "backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, container *AppContainer, handlers *Handlers) {
	router.Use(gin.Recovery())
	router.Use(middlewarepkg.RequestIDMiddleware())
	router.Use(RequestLogger())
	router.Use(CORS())
	router.Use(metrics.PrometheusMiddleware())

	// 健康检查与指标（公开）
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 认证 API（公开，不需要 JWT）
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", handlers.Auth.Register)
		authGroup.POST("/login", handlers.Auth.Login)
	}

	// 主 API 组（需要 JWT）
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware(container.JWTService))
	{
		api.GET("/auth/verify", handlers.Auth.Verify)
		api.POST("/auth/logout", handlers.Auth.Logout)

		datasets := api.Group("/datasets")
		{
			datasets.POST("/create", handlers.Datasets.Create)
			datasets.GET("/list", handlers.Datasets.List)
			datasets.GET("/:id", handlers.Datasets.Get)
			datasets.GET("/:id/download", handlers.Datasets.Download)
		}

		// 构建与检索成本高，对 RAG 组单独限流
		rags := api.Group("/rags")
		rags.Use(middlewarepkg.RateLimitMiddleware(container.RateLimiter))
		{
			rags.POST("/create", handlers.Rags.Create)
			rags.GET("/list", handlers.Rags.List)
			rags.GET("/:id", handlers.Rags.Get)
			rags.POST("/document_search", handlers.Rags.DocumentSearch)
			rags.POST("/:id/build_db", handlers.Rags.BuildDB)
			rags.GET("/:id/question_answer", handlers.Rags.QuestionAnswer)
		}

		bookmarks := api.Group("/bookmarks")
		{
			bookmarks.GET("", handlers.Bookmarks.List)
			bookmarks.POST("/datasets/:id", handlers.Bookmarks.AddDataset)
			bookmarks.DELETE("/datasets/:id", handlers.Bookmarks.RemoveDataset)
			bookmarks.POST("/rags/:id", handlers.Bookmarks.AddRag)
			bookmarks.DELETE("/rags/:id", handlers.Bookmarks.RemoveRag)
		}
	}
}
