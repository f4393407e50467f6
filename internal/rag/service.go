package rag

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"go.uber.org/zap"
)

// Service RAG 配置的增删查服务
type Service struct {
	db           *gorm.DB
	chunkOverlap int
}

// NewService 创建 RAG 配置服务。chunkOverlap 是部署级分块重叠（字符数）。
func NewService(db *gorm.DB, chunkOverlap int) *Service {
	return &Service{db: db, chunkOverlap: chunkOverlap}
}

// CreateInput 创建 RAG 配置的入参
type CreateInput struct {
	Name        string
	Description string
	MadeByUser  string
	DatasetIDs  []string
	LLMModel    string
	ChunkSize   int
}

// Create 校验分块参数后写入 RAG 配置。
// ChunkSize 必须大于部署级重叠，否则构建时步长会归零。
func (s *Service) Create(ctx context.Context, in CreateInput) (*RagConfig, error) {
	if _, err := NewChunker(in.ChunkSize, s.chunkOverlap); err != nil {
		return nil, err
	}

	cfg := &RagConfig{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		MadeByUser:  in.MadeByUser,
		DatasetIDs:  datatypes.NewJSONSlice(in.DatasetIDs),
		LLMModel:    in.LLMModel,
		ChunkSize:   in.ChunkSize,
	}

	if err := s.db.WithContext(ctx).Create(cfg).Error; err != nil {
		return nil, fmt.Errorf("创建RAG配置失败: %w", err)
	}

	logger.Info("RAG配置创建成功",
		zap.String("rag_id", cfg.ID),
		zap.Int("dataset_count", len(cfg.DatasetIDs)))

	return cfg, nil
}

// Get 按 ID 查询 RAG 配置
func (s *Service) Get(ctx context.Context, id string) (*RagConfig, error) {
	var cfg RagConfig
	if err := s.db.WithContext(ctx).First(&cfg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRagNotFound
		}
		return nil, fmt.Errorf("查询RAG配置失败: %w", err)
	}
	return &cfg, nil
}

// List 查询全部 RAG 配置，按创建时间倒序
func (s *Service) List(ctx context.Context) ([]*RagConfig, error) {
	var configs []*RagConfig
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&configs).Error
	if err != nil {
		return nil, fmt.Errorf("查询RAG配置列表失败: %w", err)
	}
	return configs, nil
}
