package rag

import (
	"context"
	"fmt"
	"io"
	"time"

	"backend/internal/dataset"
	"backend/internal/logger"
	"backend/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Builder 索引构建器：读取 → 分块 → 向量化 → 写入向量存储。
// 构建同步执行，任一步失败都使整次构建失败，不重试、不留部分成功。
type Builder struct {
	rags         *Service
	datasets     *dataset.Service
	parsers      ParserSource
	embedder     EmbeddingProvider
	store        VectorStore
	chunkOverlap int
	tracer       trace.Tracer
}

// ParserSource 按文件名分发解析
type ParserSource interface {
	Parse(fileName string, reader io.Reader) (string, error)
}

// NewBuilder 创建索引构建器
func NewBuilder(rags *Service, datasets *dataset.Service, parsers ParserSource, embedder EmbeddingProvider, store VectorStore, chunkOverlap int) *Builder {
	return &Builder{
		rags:         rags,
		datasets:     datasets,
		parsers:      parsers,
		embedder:     embedder,
		store:        store,
		chunkOverlap: chunkOverlap,
		tracer:       otel.Tracer("backend/internal/rag"),
	}
}

// BuildResult 一次索引构建的结果
type BuildResult struct {
	RagID        string        `json:"rag_id"`
	Collection   string        `json:"collection"`
	DatasetCount int           `json:"dataset_count"`
	ChunkCount   int           `json:"chunk_count"`
	Duration     time.Duration `json:"-"`
	DurationMS   int64         `json:"duration_ms"`
}

// Build 重建 RAG 配置的向量索引。
// 所有数据集的分块先在内存中聚齐，最后一次 Upsert 写入；
// 分块 id `{dataset_id}_{i}` 是确定的，重建幂等。
func (b *Builder) Build(ctx context.Context, ragID string) (*BuildResult, error) {
	ctx, span := b.tracer.Start(ctx, "Builder.Build")
	defer span.End()
	span.SetAttributes(attribute.String("rag_id", ragID))

	start := time.Now()

	cfg, err := b.rags.Get(ctx, ragID)
	if err != nil {
		return nil, err
	}

	chunker, err := NewChunker(cfg.ChunkSize, b.chunkOverlap)
	if err != nil {
		return nil, err
	}

	collection := CollectionName(cfg.ID)
	if err := b.store.EnsureCollection(ctx, collection); err != nil {
		metrics.RAGBuildsTotal.WithLabelValues(ragID, "error").Inc()
		return nil, err
	}

	entries := make([]*Entry, 0)
	for _, datasetID := range cfg.DatasetIDs {
		batch, err := b.collectDataset(ctx, chunker, datasetID)
		if err != nil {
			metrics.RAGBuildsTotal.WithLabelValues(ragID, "error").Inc()
			span.RecordError(err)
			return nil, err
		}
		entries = append(entries, batch...)
	}

	if err := b.store.Upsert(ctx, collection, entries); err != nil {
		metrics.RAGBuildsTotal.WithLabelValues(ragID, "error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("写入向量存储失败: %w", err)
	}

	elapsed := time.Since(start)
	metrics.RAGBuildsTotal.WithLabelValues(ragID, "success").Inc()
	metrics.RAGBuildDuration.WithLabelValues(ragID).Observe(elapsed.Seconds())
	metrics.RAGChunksIndexed.WithLabelValues(ragID).Add(float64(len(entries)))

	logger.Info("索引构建完成",
		zap.String("rag_id", ragID),
		zap.String("collection", collection),
		zap.Int("dataset_count", len(cfg.DatasetIDs)),
		zap.Int("chunk_count", len(entries)),
		zap.Duration("duration", elapsed))

	return &BuildResult{
		RagID:        ragID,
		Collection:   collection,
		DatasetCount: len(cfg.DatasetIDs),
		ChunkCount:   len(entries),
		Duration:     elapsed,
		DurationMS:   elapsed.Milliseconds(),
	}, nil
}

// collectDataset 处理单个数据集：读文件、解析、分块、批量向量化
func (b *Builder) collectDataset(ctx context.Context, chunker *Chunker, datasetID string) ([]*Entry, error) {
	ds, err := b.datasets.GetRecord(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	rc, err := b.datasets.OpenContent(ds)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	text, err := b.parsers.Parse(ds.FileName(), rc)
	if err != nil {
		return nil, fmt.Errorf("解析数据集 %s 失败: %w", datasetID, err)
	}

	chunks := chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("向量化数据集 %s 失败: %w", datasetID, err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("向量数量不匹配: 期望 %d 实际 %d", len(chunks), len(embeddings))
	}

	entries := make([]*Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = &Entry{
			ChunkID:        fmt.Sprintf("%s_%d", datasetID, c.Index),
			DatasetID:      datasetID,
			Content:        c.Content,
			ChunkIndex:     c.Index,
			TokenCount:     c.TokenCount,
			Embedding:      embeddings[i],
			EmbeddingModel: b.embedder.GetModel(),
		}
	}

	return entries, nil
}
