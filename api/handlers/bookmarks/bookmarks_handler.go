package bookmarks

import (
	"errors"
	"net/http"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/dataset"
	"backend/internal/rag"
	"backend/internal/user"

	"github.com/gin-gonic/gin"
)

// BookmarksHandler 收藏处理器
type BookmarksHandler struct {
	users    *user.Service
	datasets *dataset.Service
	rags     *rag.Service
}

// NewBookmarksHandler 创建收藏处理器
func NewBookmarksHandler(users *user.Service, datasets *dataset.Service, rags *rag.Service) *BookmarksHandler {
	return &BookmarksHandler{
		users:    users,
		datasets: datasets,
		rags:     rags,
	}
}

// AddDataset 收藏数据集
// @Summary 收藏数据集
// @Description 重复收藏是幂等操作
// @Tags Bookmarks
// @Produce json
// @Param id path string true "数据集 ID"
// @Success 200 {object} common.APIResponse
// @Failure 404 {object} common.ErrorResponse "数据集不存在"
// @Router /api/bookmarks/datasets/{id} [post]
func (h *BookmarksHandler) AddDataset(c *gin.Context) {
	userCtx, exists := auth.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, common.ErrorResponse{Code: "unauthorized", Message: "未认证"})
		return
	}

	id := c.Param("id")
	if _, err := h.datasets.GetRecord(c.Request.Context(), id); err != nil {
		if errors.Is(err, dataset.ErrDatasetNotFound) {
			c.JSON(http.StatusNotFound, common.ErrorResponse{Code: "not_found", Message: "数据集不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Code: "internal_error", Message: "查询数据集失败"})
		return
	}

	if err := h.users.AddMembership(c.Request.Context(), userCtx.UserID, user.RelationBookmarked, user.TargetDataset, id); err != nil {
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Code: "internal_error", Message: "收藏失败"})
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Success: true, Message: "收藏成功"})
}

// RemoveDataset 取消收藏数据集
// @Summary 取消收藏数据集
// @Description 未收藏时也返回成功
// @Tags Bookmarks
// @Produce json
// @Param id path string true "数据集 ID"
// @Success 200 {object} common.APIResponse
// @Router /api/bookmarks/datasets/{id} [delete]
func (h *BookmarksHandler) RemoveDataset(c *gin.Context) {
	userCtx, exists := auth.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, common.ErrorResponse{Code: "unauthorized", Message: "未认证"})
		return
	}

	if err := h.users.RemoveMembership(c.Request.Context(), userCtx.UserID, user.RelationBookmarked, user.TargetDataset, c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Code: "internal_error", Message: "取消收藏失败"})
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Success: true, Message: "已取消收藏"})
}

// AddRag 收藏 RAG 配置
// @Summary 收藏 RAG 配置
// @Tags Bookmarks
// @Produce json
// @Param id path string true "RAG 配置 ID"
// @Success 200 {object} common.APIResponse
// @Failure 404 {object} common.ErrorResponse "RAG 配置不存在"
// @Router /api/bookmarks/rags/{id} [post]
func (h *BookmarksHandler) AddRag(c *gin.Context) {
	userCtx, exists := auth.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, common.ErrorResponse{Code: "unauthorized", Message: "未认证"})
		return
	}

	id := c.Param("id")
	if _, err := h.rags.Get(c.Request.Context(), id); err != nil {
		if errors.Is(err, rag.ErrRagNotFound) {
			c.JSON(http.StatusNotFound, common.ErrorResponse{Code: "not_found", Message: "RAG配置不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Code: "internal_error", Message: "查询RAG配置失败"})
		return
	}

	if err := h.users.AddMembership(c.Request.Context(), userCtx.UserID, user.RelationBookmarked, user.TargetRag, id); err != nil {
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Code: "internal_error", Message: "收藏失败"})
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Success: true, Message: "收藏成功"})
}

// RemoveRag 取消收藏 RAG 配置
// @Summary 取消收藏 RAG 配置
// @Tags Bookmarks
// @Produce json
// @Param id path string true "RAG 配置 ID"
// @Success 200 {object} common.APIResponse
// @Router /api/bookmarks/rags/{id} [delete]
func (h *BookmarksHandler) RemoveRag(c *gin.Context) {
	userCtx, exists := auth.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, common.ErrorResponse{Code: "unauthorized", Message: "未认证"})
		return
	}

	if err := h.users.RemoveMembership(c.Request.Context(), userCtx.UserID, user.RelationBookmarked, user.TargetRag, c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Code: "internal_error", Message: "取消收藏失败"})
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Success: true, Message: "已取消收藏"})
}

// List 当前用户的全部关系
// @Summary 当前用户的创建与收藏列表
// @Description 返回创建/收藏的数据集与 RAG 配置 ID 列表
// @Tags Bookmarks
// @Produce json
// @Success 200 {object} user.MembershipLists
// @Router /api/bookmarks [get]
func (h *BookmarksHandler) List(c *gin.Context) {
	userCtx, exists := auth.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, common.ErrorResponse{Code: "unauthorized", Message: "未认证"})
		return
	}

	lists, err := h.users.ListMemberships(c.Request.Context(), userCtx.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Code: "internal_error", Message: "查询收藏失败"})
		return
	}

	c.JSON(http.StatusOK, lists)
}
