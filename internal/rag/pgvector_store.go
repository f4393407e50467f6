package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RagChunk pgvector 后端的分块记录。
// 以 (collection, chunk_id) 为唯一键，重建时覆盖写入。
type RagChunk struct {
	Collection     string          `gorm:"primaryKey;size:128"`
	ChunkID        string          `gorm:"primaryKey;size:128;column:chunk_id"`
	DatasetID      string          `gorm:"size:64;index;column:dataset_id"`
	Content        string          `gorm:"type:text"`
	ChunkIndex     int             `gorm:"column:chunk_index"`
	TokenCount     int             `gorm:"column:token_count"`
	Embedding      pgvector.Vector `gorm:"type:vector(1536)"`
	EmbeddingModel string          `gorm:"size:100;column:embedding_model"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (RagChunk) TableName() string {
	return "rag_chunks"
}

// PGVectorStore 基于 PostgreSQL pgvector 扩展的向量存储实现。
// 所有集合共用一张 rag_chunks 表，以 collection 列区分。
type PGVectorStore struct {
	db *gorm.DB
}

// NewPGVectorStore 创建 pgvector 存储实例并准备扩展与表结构
func NewPGVectorStore(db *gorm.DB) (*PGVectorStore, error) {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("确保pgvector扩展失败: %w", err)
	}
	if err := db.AutoMigrate(&RagChunk{}); err != nil {
		return nil, fmt.Errorf("迁移 rag_chunks 表失败: %w", err)
	}
	return &PGVectorStore{db: db}, nil
}

// EnsureCollection 集合只是 rag_chunks 上的一个列值，无需建表
func (s *PGVectorStore) EnsureCollection(ctx context.Context, name string) error {
	return nil
}

// Upsert 写入或覆盖一批分块向量
func (s *PGVectorStore) Upsert(ctx context.Context, name string, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]RagChunk, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		rows = append(rows, RagChunk{
			Collection:     name,
			ChunkID:        e.ChunkID,
			DatasetID:      e.DatasetID,
			Content:        e.Content,
			ChunkIndex:     e.ChunkIndex,
			TokenCount:     e.TokenCount,
			Embedding:      pgvector.NewVector(e.Embedding),
			EmbeddingModel: e.EmbeddingModel,
		})
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "collection"}, {Name: "chunk_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"dataset_id", "content", "chunk_index", "token_count",
				"embedding", "embedding_model", "updated_at",
			}),
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("pgvector upsert 失败: %w", err)
	}
	return nil
}

// Query 余弦距离检索；<=> 是 pgvector 的余弦距离操作符
func (s *PGVectorStore) Query(ctx context.Context, name string, vector []float32, topK int) ([]*SearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("查询向量不能为空")
	}
	if topK <= 0 {
		topK = 5
	}

	query := `
		SELECT
			chunk_id,
			dataset_id,
			content,
			chunk_index,
			1 - (embedding <=> ?::vector) AS score
		FROM rag_chunks
		WHERE collection = ?
		ORDER BY embedding <=> ?::vector
		LIMIT ?
	`

	vec := pgvector.NewVector(vector)
	var rows []struct {
		ChunkID    string  `gorm:"column:chunk_id"`
		DatasetID  string  `gorm:"column:dataset_id"`
		Content    string  `gorm:"column:content"`
		ChunkIndex int     `gorm:"column:chunk_index"`
		Score      float64 `gorm:"column:score"`
	}
	if err := s.db.WithContext(ctx).Raw(query, vec, name, vec, topK).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("向量搜索失败: %w", err)
	}

	results := make([]*SearchResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, &SearchResult{
			ChunkID:    r.ChunkID,
			DatasetID:  r.DatasetID,
			Content:    r.Content,
			ChunkIndex: r.ChunkIndex,
			Score:      r.Score,
		})
	}
	return results, nil
}

// Count 查询集合内的向量数量
func (s *PGVectorStore) Count(ctx context.Context, name string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&RagChunk{}).
		Where("collection = ?", name).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("查询向量数量失败: %w", err)
	}
	return count, nil
}
