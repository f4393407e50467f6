package datasets

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/dataset"
	"backend/internal/logger"
	"backend/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DatasetsHandler 数据集处理器
type DatasetsHandler struct {
	datasets      *dataset.Service
	users         *user.Service
	maxUploadSize int64
}

// NewDatasetsHandler 创建数据集处理器
func NewDatasetsHandler(datasets *dataset.Service, users *user.Service, maxUploadSize int64) *DatasetsHandler {
	return &DatasetsHandler{
		datasets:      datasets,
		users:         users,
		maxUploadSize: maxUploadSize,
	}
}

// CreateForm 上传表单
type CreateForm struct {
	Name        string `form:"name" binding:"required,min=1,max=100"`
	Description string `form:"description" binding:"max=3000"`
}

// Create 上传数据集
// @Summary 上传数据集
// @Description multipart 上传一个 pdf/txt 文件并创建数据集
// @Tags Datasets
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "数据集名称"
// @Param description formData string false "描述"
// @Param file formData file true "pdf 或 txt 文件"
// @Success 200 {object} dataset.Dataset
// @Failure 400 {object} map[string]string "参数错误或文件类型不支持"
// @Failure 413 {object} map[string]string "文件超出大小限制"
// @Failure 500 {object} map[string]string "服务器内部错误"
// @Router /api/datasets/create [post]
func (h *DatasetsHandler) Create(c *gin.Context) {
	userCtx, exists := auth.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	var form CreateForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少文件"})
		return
	}

	if fileHeader.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "文件超出大小限制"})
		return
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileHeader.Filename)), ".")
	if !dataset.IsAllowedFileType(ext) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不支持的文件类型，仅支持 pdf 和 txt"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}
	defer file.Close()

	d, err := h.datasets.Create(c.Request.Context(), dataset.CreateInput{
		Name:        form.Name,
		Description: form.Description,
		MadeByUser:  userCtx.UserID,
		FileType:    ext,
		Content:     file,
	})
	if err != nil {
		if errors.Is(err, dataset.ErrUnsupportedFileType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建数据集失败"})
		return
	}

	// 记录创建者关系；失败不回滚已创建的数据集
	if err := h.users.AddMembership(c.Request.Context(), userCtx.UserID, user.RelationCreated, user.TargetDataset, d.ID); err != nil {
		logger.Warn("记录数据集创建关系失败",
			zap.String("dataset_id", d.ID),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, d)
}

// List 数据集列表
// @Summary 数据集列表
// @Description 返回全部数据集及上传者用户名
// @Tags Datasets
// @Produce json
// @Success 200 {object} common.ListResponse
// @Router /api/datasets/list [get]
func (h *DatasetsHandler) List(c *gin.Context) {
	views, err := h.datasets.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询数据集列表失败"})
		return
	}

	c.JSON(http.StatusOK, common.ListResponse{
		Items: views,
		Total: len(views),
	})
}

// Get 数据集详情
// @Summary 数据集详情
// @Tags Datasets
// @Produce json
// @Param id path string true "数据集 ID"
// @Success 200 {object} dataset.View
// @Failure 404 {object} map[string]string "数据集不存在"
// @Router /api/datasets/{id} [get]
func (h *DatasetsHandler) Get(c *gin.Context) {
	view, err := h.datasets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, dataset.ErrDatasetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "数据集不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询数据集失败"})
		return
	}

	c.JSON(http.StatusOK, view)
}

// Download 下载数据集文件
// @Summary 下载数据集文件
// @Description 以 {name}.{file_type} 为建议文件名返回底层文件
// @Tags Datasets
// @Produce octet-stream
// @Param id path string true "数据集 ID"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string "数据集不存在"
// @Router /api/datasets/{id}/download [get]
func (h *DatasetsHandler) Download(c *gin.Context) {
	d, err := h.datasets.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, dataset.ErrDatasetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "数据集不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询数据集失败"})
		return
	}

	c.FileAttachment(h.datasets.ContentPath(d), d.DownloadName())
}
