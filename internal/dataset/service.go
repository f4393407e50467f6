package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"backend/internal/logger"
	"backend/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrDatasetNotFound 数据集不存在
	ErrDatasetNotFound = errors.New("数据集不存在")
	// ErrUnsupportedFileType 不支持的文件类型
	ErrUnsupportedFileType = errors.New("不支持的文件类型，仅支持 pdf 和 txt")
)

// Service 数据集服务：上传入库、查询、文件访问
type Service struct {
	db    *gorm.DB
	store *FileStore
}

// NewService 创建数据集服务
func NewService(db *gorm.DB, store *FileStore) *Service {
	return &Service{db: db, store: store}
}

// CreateInput 上传数据集的入参
type CreateInput struct {
	Name        string
	Description string
	MadeByUser  string
	FileType    string // 扩展名，不含点
	Content     io.Reader
}

// Create 存储上传的文件并写入数据集记录。
// 文件先落盘，入库失败时尽力删除已写文件。
func (s *Service) Create(ctx context.Context, in CreateInput) (*Dataset, error) {
	if !IsAllowedFileType(in.FileType) {
		metrics.DatasetUploadsTotal.WithLabelValues(in.FileType, "rejected").Inc()
		return nil, ErrUnsupportedFileType
	}

	d := &Dataset{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		MadeByUser:  in.MadeByUser,
		FileType:    in.FileType,
		CreatedAt:   time.Now(),
	}

	size, err := s.store.Save(d.FileName(), in.Content)
	if err != nil {
		metrics.DatasetUploadsTotal.WithLabelValues(in.FileType, "error").Inc()
		return nil, err
	}
	d.SizeBytes = size

	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		if rmErr := s.store.Remove(d.FileName()); rmErr != nil {
			logger.Warn("回滚数据集文件失败", zap.String("dataset_id", d.ID), zap.Error(rmErr))
		}
		metrics.DatasetUploadsTotal.WithLabelValues(in.FileType, "error").Inc()
		return nil, fmt.Errorf("创建数据集记录失败: %w", err)
	}

	metrics.DatasetUploadsTotal.WithLabelValues(in.FileType, "success").Inc()
	logger.Info("数据集上传成功",
		zap.String("dataset_id", d.ID),
		zap.String("file_type", d.FileType),
		zap.Int64("size_bytes", size))

	return d, nil
}

// View 数据集及其上传者用户名
type View struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MadeByUser  string    `json:"madeByUser"`
	Username    string    `json:"username"`
	FileType    string    `json:"fileType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Get 按 ID 查询数据集（带上传者用户名）
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	var v View
	err := s.db.WithContext(ctx).
		Table("datasets").
		Select("datasets.*, users.username AS username").
		Joins("LEFT JOIN users ON users.id = datasets.made_by_user").
		Where("datasets.id = ?", id).
		Take(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, fmt.Errorf("查询数据集失败: %w", err)
	}
	return &v, nil
}

// List 查询全部数据集（带上传者用户名），按创建时间倒序
func (s *Service) List(ctx context.Context) ([]*View, error) {
	var views []*View
	err := s.db.WithContext(ctx).
		Table("datasets").
		Select("datasets.*, users.username AS username").
		Joins("LEFT JOIN users ON users.id = datasets.made_by_user").
		Order("datasets.created_at DESC").
		Find(&views).Error
	if err != nil {
		return nil, fmt.Errorf("查询数据集列表失败: %w", err)
	}
	return views, nil
}

// GetRecord 按 ID 查询裸数据集记录（索引构建路径使用）
func (s *Service) GetRecord(ctx context.Context, id string) (*Dataset, error) {
	var d Dataset
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, fmt.Errorf("查询数据集失败: %w", err)
	}
	return &d, nil
}

// OpenContent 打开数据集的底层文件
func (s *Service) OpenContent(d *Dataset) (io.ReadCloser, error) {
	return s.store.Open(d.FileName())
}

// ContentPath 数据集底层文件的磁盘路径（下载接口使用）
func (s *Service) ContentPath(d *Dataset) string {
	return s.store.Path(d.FileName())
}
