package rag

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

var (
	// ErrRagNotFound RAG 配置不存在
	ErrRagNotFound = errors.New("RAG 配置不存在")
	// ErrNoDocuments 检索结果为空
	ErrNoDocuments = errors.New("没有检索到任何文档")
)

// RagConfig 一组数据集加分块/模型参数的命名配置。
// DatasetIDs 保持创建时的顺序，构建索引时按序处理；创建后不可变。
type RagConfig struct {
	ID          string                        `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string                        `json:"name" gorm:"size:100;not null"`
	Description string                        `json:"description" gorm:"size:3000"`
	MadeByUser  string                        `json:"madeByUser" gorm:"type:uuid;not null;index"`
	DatasetIDs  datatypes.JSONSlice[string]   `json:"datasetIds" gorm:"not null"`
	LLMModel    string                        `json:"llmModel" gorm:"size:100;not null"`
	ChunkSize   int                           `json:"chunkSize" gorm:"not null"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// TableName 指定表名
func (RagConfig) TableName() string {
	return "rag_configs"
}
