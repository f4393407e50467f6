package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raghub_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raghub_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RAG 构建/检索指标
var (
	// RAGBuildsTotal 索引构建总数
	RAGBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raghub_rag_builds_total",
			Help: "RAG 索引构建总数",
		},
		[]string{"rag_id", "status"},
	)

	// RAGBuildDuration 索引构建耗时（秒）
	// 构建为同步调用，嵌入请求占绝大部分耗时
	RAGBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raghub_rag_build_duration_seconds",
			Help:    "RAG 索引构建耗时分布",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"rag_id"},
	)

	// RAGChunksIndexed 已写入向量存储的分块数
	RAGChunksIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raghub_rag_chunks_indexed_total",
			Help: "写入向量存储的分块总数",
		},
		[]string{"rag_id"},
	)

	// RAGSearchesTotal 检索请求总数
	RAGSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raghub_rag_searches_total",
			Help: "RAG 检索请求总数",
		},
		[]string{"rag_id", "status"},
	)

	// RAGSearchDuration 检索耗时（秒）
	RAGSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raghub_rag_search_duration_seconds",
			Help:    "RAG 检索耗时分布",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"rag_id"},
	)

	// RAGAnswersTotal 问答请求总数
	RAGAnswersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raghub_rag_answers_total",
			Help: "RAG 问答请求总数",
		},
		[]string{"rag_id", "status"},
	)

	// EmbeddingRequestsTotal 嵌入 API 调用总数
	EmbeddingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raghub_embedding_requests_total",
			Help: "嵌入 API 调用总数",
		},
		[]string{"provider", "status"},
	)
)

// 用户指标
var (
	// UserRegistrationsTotal 用户注册总数
	UserRegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raghub_user_registrations_total",
			Help: "用户注册总数",
		},
	)

	// UserLoginsTotal 用户登录总数
	UserLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raghub_user_logins_total",
			Help: "用户登录总数",
		},
		[]string{"status"},
	)

	// DatasetUploadsTotal 数据集上传总数
	DatasetUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raghub_dataset_uploads_total",
			Help: "数据集上传总数",
		},
		[]string{"file_type", "status"},
	)
)
