package rags

import (
	"errors"
	"net/http"
	"strconv"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/dataset"
	"backend/internal/logger"
	"backend/internal/rag"
	"backend/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RagsHandler RAG 配置处理器
type RagsHandler struct {
	rags        *rag.Service
	builder     *rag.Builder
	queryEngine *rag.QueryEngine
	users       *user.Service
	defaultTopK int
}

// NewRagsHandler 创建 RAG 配置处理器
func NewRagsHandler(rags *rag.Service, builder *rag.Builder, queryEngine *rag.QueryEngine, users *user.Service, defaultTopK int) *RagsHandler {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &RagsHandler{
		rags:        rags,
		builder:     builder,
		queryEngine: queryEngine,
		users:       users,
		defaultTopK: defaultTopK,
	}
}

// CreateRequest 创建 RAG 配置请求
type CreateRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=100"`
	Description string   `json:"description" binding:"max=3000"`
	DatasetIDs  []string `json:"dataset_ids" binding:"required"`
	LLMModel    string   `json:"llm_model" binding:"required"`
	ChunkSize   int      `json:"chunk_size" binding:"required,gt=0"`
}

// Create 创建 RAG 配置
// @Summary 创建 RAG 配置
// @Description 将若干数据集分组为一个命名 RAG 配置
// @Tags Rags
// @Accept json
// @Produce json
// @Param request body CreateRequest true "创建请求"
// @Success 200 {object} rag.RagConfig
// @Failure 400 {object} map[string]string "参数错误或分块参数非法"
// @Failure 500 {object} map[string]string "服务器内部错误"
// @Router /api/rags/create [post]
func (h *RagsHandler) Create(c *gin.Context) {
	userCtx, exists := auth.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	cfg, err := h.rags.Create(c.Request.Context(), rag.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		MadeByUser:  userCtx.UserID,
		DatasetIDs:  req.DatasetIDs,
		LLMModel:    req.LLMModel,
		ChunkSize:   req.ChunkSize,
	})
	if err != nil {
		if errors.Is(err, rag.ErrInvalidChunking) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "分块参数非法: chunk_size 必须大于分块重叠"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建RAG配置失败"})
		return
	}

	if err := h.users.AddMembership(c.Request.Context(), userCtx.UserID, user.RelationCreated, user.TargetRag, cfg.ID); err != nil {
		logger.Warn("记录RAG创建关系失败",
			zap.String("rag_id", cfg.ID),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, cfg)
}

// List RAG 配置列表
// @Summary RAG 配置列表
// @Tags Rags
// @Produce json
// @Success 200 {object} common.ListResponse
// @Router /api/rags/list [get]
func (h *RagsHandler) List(c *gin.Context) {
	configs, err := h.rags.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询RAG配置列表失败"})
		return
	}

	c.JSON(http.StatusOK, common.ListResponse{
		Items: configs,
		Total: len(configs),
	})
}

// Get RAG 配置详情
// @Summary RAG 配置详情
// @Tags Rags
// @Produce json
// @Param id path string true "RAG 配置 ID"
// @Success 200 {object} rag.RagConfig
// @Failure 404 {object} map[string]string "RAG 配置不存在"
// @Router /api/rags/{id} [get]
func (h *RagsHandler) Get(c *gin.Context) {
	cfg, err := h.rags.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, rag.ErrRagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "RAG配置不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询RAG配置失败"})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// BuildDB 构建向量索引
// @Summary 构建向量索引
// @Description 同步重建 RAG 配置的向量索引，仅创建者可调用
// @Tags Rags
// @Produce json
// @Param id path string true "RAG 配置 ID"
// @Success 200 {object} rag.BuildResult
// @Failure 403 {object} map[string]string "非创建者"
// @Failure 404 {object} map[string]string "RAG 配置或数据集不存在"
// @Failure 500 {object} map[string]string "构建失败"
// @Router /api/rags/{id}/build_db [post]
func (h *RagsHandler) BuildDB(c *gin.Context) {
	userCtx, exists := auth.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	ragID := c.Param("id")
	cfg, err := h.rags.Get(c.Request.Context(), ragID)
	if err != nil {
		if errors.Is(err, rag.ErrRagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "RAG配置不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询RAG配置失败"})
		return
	}

	if cfg.MadeByUser != userCtx.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "只有创建者可以构建索引"})
		return
	}

	result, err := h.builder.Build(c.Request.Context(), ragID)
	if err != nil {
		switch {
		case errors.Is(err, dataset.ErrDatasetNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "数据集不存在"})
		case errors.Is(err, rag.ErrInvalidChunking):
			c.JSON(http.StatusBadRequest, gin.H{"error": "分块参数非法"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "索引构建失败: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// SearchRequest 文档检索请求
type SearchRequest struct {
	RagID string `json:"rag_id" binding:"required"`
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// DocumentSearch 文档检索
// @Summary 文档检索
// @Description 在 RAG 配置的向量索引内检索相似分块
// @Tags Rags
// @Accept json
// @Produce json
// @Param request body SearchRequest true "检索请求"
// @Success 200 {object} common.ListResponse
// @Failure 404 {object} map[string]string "RAG 配置不存在或无检索结果"
// @Router /api/rags/document_search [post]
func (h *RagsHandler) DocumentSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = h.defaultTopK
	}

	results, err := h.queryEngine.Search(c.Request.Context(), req.RagID, req.Query, topK)
	if err != nil {
		h.respondQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.ListResponse{
		Items: results,
		Total: len(results),
	})
}

// QuestionAnswer 基于检索的问答
// @Summary 基于检索的问答
// @Description 检索相关分块并调用 LLM 生成回答
// @Tags Rags
// @Produce json
// @Param id path string true "RAG 配置 ID"
// @Param question query string true "问题"
// @Param top_k query int false "检索数量，默认 5"
// @Success 200 {object} rag.AnswerResult
// @Failure 404 {object} map[string]string "RAG 配置不存在或无检索结果"
// @Failure 502 {object} map[string]string "上游模型调用失败"
// @Router /api/rags/{id}/question_answer [get]
func (h *RagsHandler) QuestionAnswer(c *gin.Context) {
	question := c.Query("question")
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 question 参数"})
		return
	}

	topK := h.defaultTopK
	if raw := c.Query("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top_k 必须是正整数"})
			return
		}
		topK = parsed
	}

	result, err := h.queryEngine.Answer(c.Request.Context(), c.Param("id"), question, topK)
	if err != nil {
		h.respondQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *RagsHandler) respondQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rag.ErrRagNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "RAG配置不存在"})
	case errors.Is(err, rag.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "没有检索到任何文档"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "查询失败: " + err.Error()})
	}
}
