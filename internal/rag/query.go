package rag

import (
	"context"
	"strings"
	"time"

	"backend/internal/logger"
	"backend/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// QueryEngine 检索与问答：向量化问题 → 相似度检索 → 聊天补全。
type QueryEngine struct {
	rags     *Service
	embedder EmbeddingProvider
	store    VectorStore
	llm      LLMProvider
	tracer   trace.Tracer
}

// NewQueryEngine 创建查询引擎
func NewQueryEngine(rags *Service, embedder EmbeddingProvider, store VectorStore, llm LLMProvider) *QueryEngine {
	return &QueryEngine{
		rags:     rags,
		embedder: embedder,
		store:    store,
		llm:      llm,
		tracer:   otel.Tracer("backend/internal/rag"),
	}
}

// Search 在 RAG 配置的集合内检索相似分块。
// 检索为空时返回 ErrNoDocuments。
func (e *QueryEngine) Search(ctx context.Context, ragID, query string, topK int) ([]*SearchResult, error) {
	ctx, span := e.tracer.Start(ctx, "QueryEngine.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("rag_id", ragID),
		attribute.Int("top_k", topK),
	)

	start := time.Now()

	cfg, err := e.rags.Get(ctx, ragID)
	if err != nil {
		return nil, err
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		metrics.RAGSearchesTotal.WithLabelValues(ragID, "error").Inc()
		span.RecordError(err)
		return nil, err
	}

	results, err := e.store.Query(ctx, CollectionName(cfg.ID), vector, topK)
	if err != nil {
		metrics.RAGSearchesTotal.WithLabelValues(ragID, "error").Inc()
		span.RecordError(err)
		return nil, err
	}

	if len(results) == 0 {
		metrics.RAGSearchesTotal.WithLabelValues(ragID, "empty").Inc()
		return nil, ErrNoDocuments
	}

	metrics.RAGSearchesTotal.WithLabelValues(ragID, "success").Inc()
	metrics.RAGSearchDuration.WithLabelValues(ragID).Observe(time.Since(start).Seconds())

	return results, nil
}

// AnswerResult 问答结果：回答文本与检索到的依据分块
type AnswerResult struct {
	Answer  string          `json:"answer"`
	Sources []*SearchResult `json:"sources"`
}

// Answer 基于检索结果回答问题。
// 检索到的文档按相关性顺序拼接，以 assistant 消息注入上下文；
// 返回第一个候选的原始文本。
func (e *QueryEngine) Answer(ctx context.Context, ragID, question string, topK int) (*AnswerResult, error) {
	ctx, span := e.tracer.Start(ctx, "QueryEngine.Answer")
	defer span.End()
	span.SetAttributes(attribute.String("rag_id", ragID))

	cfg, err := e.rags.Get(ctx, ragID)
	if err != nil {
		return nil, err
	}

	results, err := e.Search(ctx, ragID, question, topK)
	if err != nil {
		return nil, err
	}

	documents := make([]string, len(results))
	for i, r := range results {
		documents[i] = r.Content
	}

	messages := []ChatMessage{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: question},
		{Role: "assistant", Content: strings.Join(documents, "\n")},
	}

	answer, err := e.llm.Complete(ctx, cfg.LLMModel, messages)
	if err != nil {
		metrics.RAGAnswersTotal.WithLabelValues(ragID, "error").Inc()
		span.RecordError(err)
		return nil, err
	}

	metrics.RAGAnswersTotal.WithLabelValues(ragID, "success").Inc()
	logger.Info("问答完成",
		zap.String("rag_id", ragID),
		zap.Int("source_count", len(results)))

	return &AnswerResult{
		Answer:  answer,
		Sources: results,
	}, nil
}
