package rag

import (
	"context"
	"strings"
)

// Entry 描述一条写入向量存储的文档分块。
type Entry struct {
	ChunkID        string // `{dataset_id}_{index}`
	DatasetID      string
	Content        string
	ChunkIndex     int
	TokenCount     int
	Embedding      []float32
	EmbeddingModel string
}

// SearchResult 描述一次相似度检索的返回结果。
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DatasetID  string  `json:"dataset_id"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// VectorStore 按集合组织的向量存储，可由不同后端实现（Qdrant、pgvector）。
// 每个 RAG 配置对应一个集合；Upsert 以 ChunkID 为键覆盖写入。
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, name string, entries []*Entry) error
	Query(ctx context.Context, name string, vector []float32, topK int) ([]*SearchResult, error)
	Count(ctx context.Context, name string) (int64, error)
}

// CollectionName 由 RAG 配置 ID 派生集合名：前缀 rag_，
// 非字母数字字符一律替换为下划线。
// 例: 38cd5a6e-bbff → rag_38cd5a6e_bbff
func CollectionName(ragID string) string {
	var b strings.Builder
	b.WriteString("rag_")
	for _, r := range ragID {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
