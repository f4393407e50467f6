package api

import (
	"time"

	authHandlers "backend/api/handlers/auth"
	bookmarkHandlers "backend/api/handlers/bookmarks"
	datasetHandlers "backend/api/handlers/datasets"
	ragHandlers "backend/api/handlers/rags"
	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/dataset"
	"backend/internal/infra"
	"backend/internal/logger"
	middlewarepkg "backend/internal/middleware"
	"backend/internal/rag"
	"backend/internal/rag/parsers"
	"backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AppContainer 持有全部共享服务，路由注册与测试都从这里取依赖
type AppContainer struct {
	// 基础设施
	DB          *gorm.DB
	Config      *config.Config
	RedisClient *redis.Client

	// 认证相关
	JWTService *auth.JWTService

	// 核心服务
	UserService    *user.Service
	DatasetService *dataset.Service
	RagService     *rag.Service

	// RAG 管线
	VectorStore rag.VectorStore
	Embedder    rag.EmbeddingProvider
	LLM         rag.LLMProvider
	Builder     *rag.Builder
	QueryEngine *rag.QueryEngine

	// 限流器（需要在关闭时 Stop）
	RateLimiter *middlewarepkg.RateLimiter
}

// Handlers 持有全部 HTTP 处理器
type Handlers struct {
	Auth      *authHandlers.AuthHandler
	Datasets  *datasetHandlers.DatasetsHandler
	Rags      *ragHandlers.RagsHandler
	Bookmarks *bookmarkHandlers.BookmarksHandler
}

// SetupRouter 组装依赖并返回 Gin 路由
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *AppContainer, error) {
	router := gin.New()

	// Redis（可选）：令牌黑名单与向量缓存依赖它，不可用时各自降级
	redisClient, err := infra.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis 不可用，令牌黑名单与向量缓存将被禁用", zap.Error(err))
		redisClient = nil
	}

	// 认证
	jwtService := auth.NewJWTService(cfg.Auth, redisUniversal(redisClient))

	// 核心服务
	userService := user.NewService(db)

	fileStore, err := dataset.NewFileStore(cfg.Storage.DatasetsPath)
	if err != nil {
		return nil, nil, err
	}
	datasetService := dataset.NewService(db, fileStore)

	ragService := rag.NewService(db, cfg.RAG.ChunkOverlap)

	// 向量存储：qdrant（默认）或 pgvector
	vectorStore, err := buildVectorStore(db, cfg)
	if err != nil {
		return nil, nil, err
	}

	// Embedding 提供者，Redis 可用时套一层向量缓存
	var embedder rag.EmbeddingProvider = rag.NewOpenAIEmbeddingProvider(cfg.OpenAI)
	if redisClient != nil {
		cache := rag.NewEmbeddingCache(redisClient, "emb:", 7*24*time.Hour)
		embedder = rag.NewCachedEmbeddingProvider(embedder, cache)
	}

	llm := rag.NewOpenAILLMProvider(cfg.OpenAI)

	parserRegistry := parsers.NewParserRegistry()

	builder := rag.NewBuilder(ragService, datasetService, parserRegistry, embedder, vectorStore, cfg.RAG.ChunkOverlap)
	queryEngine := rag.NewQueryEngine(ragService, embedder, vectorStore, llm)

	container := &AppContainer{
		DB:             db,
		Config:         cfg,
		RedisClient:    redisClient,
		JWTService:     jwtService,
		UserService:    userService,
		DatasetService: datasetService,
		RagService:     ragService,
		VectorStore:    vectorStore,
		Embedder:       embedder,
		LLM:            llm,
		Builder:        builder,
		QueryEngine:    queryEngine,
		RateLimiter:    middlewarepkg.NewRateLimiter(middlewarepkg.DefaultRateLimiterConfig()),
	}

	handlers := &Handlers{
		Auth:      authHandlers.NewAuthHandler(jwtService, userService),
		Datasets:  datasetHandlers.NewDatasetsHandler(datasetService, userService, cfg.Storage.MaxUploadSize),
		Rags:      ragHandlers.NewRagsHandler(ragService, builder, queryEngine, userService, cfg.RAG.DefaultTopK),
		Bookmarks: bookmarkHandlers.NewBookmarksHandler(userService, datasetService, ragService),
	}

	RegisterRoutes(router, container, handlers)

	return router, container, nil
}

// buildVectorStore 根据配置选择向量存储实现
func buildVectorStore(db *gorm.DB, cfg *config.Config) (rag.VectorStore, error) {
	switch cfg.RAG.VectorStore.Type {
	case "pgvector":
		return rag.NewPGVectorStore(db)
	case "qdrant", "":
		return rag.NewQdrantStore(cfg.RAG.VectorStore.Qdrant, nil)
	default:
		logger.Warn("未知的向量存储类型，回退到 qdrant",
			zap.String("type", cfg.RAG.VectorStore.Type),
		)
		return rag.NewQdrantStore(cfg.RAG.VectorStore.Qdrant, nil)
	}
}

// redisUniversal 避免把带类型的 nil *redis.Client 塞进接口
func redisUniversal(client *redis.Client) redis.UniversalClient {
	if client == nil {
		return nil
	}
	return client
}
