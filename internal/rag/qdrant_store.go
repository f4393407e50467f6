package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"backend/internal/config"

	"github.com/google/uuid"
)

// QdrantStore 基于 Qdrant HTTP API 的向量存储实现。
// 每个集合独立创建；point id 必须是 uuid 或无符号整数，
// 因此用 chunk id 的 SHA1 派生确定性 uuid，原始 chunk id 存入 payload。
type QdrantStore struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	vectorSize int
	distance   string

	mu      sync.Mutex
	ensured map[string]bool // 已确认存在的集合
}

// NewQdrantStore 创建 Qdrant 向量存储实例
func NewQdrantStore(cfg config.QdrantConfig, httpClient *http.Client) (*QdrantStore, error) {
	baseURL := strings.TrimSpace(cfg.Endpoint)
	if baseURL == "" {
		return nil, fmt.Errorf("qdrant endpoint 不能为空")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	vectorSize := cfg.VectorDimension
	if vectorSize <= 0 {
		vectorSize = 1536
	}

	distance := cfg.Distance
	if distance == "" {
		distance = "Cosine"
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}

	client := httpClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	}

	return &QdrantStore{
		client:     client,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		vectorSize: vectorSize,
		distance:   distance,
		ensured:    make(map[string]bool),
	}, nil
}

// PointID 由 chunk id 派生 Qdrant point id（确定性 uuid）
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// EnsureCollection 幂等地创建集合：已存在则直接返回
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	if s.ensured[name] {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// 先探测集合是否存在
	var resp qdrantOperationResponse
	err := s.doRequest(ctx, http.MethodGet, s.collectionPath(name, ""), nil, &resp)
	if err != nil || resp.Status != "ok" {
		createReq := createCollectionRequest{
			Vectors: qdrantVectorParams{
				Size:     s.vectorSize,
				Distance: s.distance,
			},
		}
		if err := s.doRequest(ctx, http.MethodPut, s.collectionPath(name, ""), createReq, &resp); err != nil {
			return fmt.Errorf("创建 Qdrant 集合失败: %w", err)
		}
		if resp.Status != "ok" {
			return fmt.Errorf("创建 Qdrant 集合失败: %s", resp.Error)
		}
	}

	s.mu.Lock()
	s.ensured[name] = true
	s.mu.Unlock()
	return nil
}

// Upsert 写入或覆盖一批分块向量
func (s *QdrantStore) Upsert(ctx context.Context, name string, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]qdrantPoint, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		if len(e.Embedding) != s.vectorSize {
			return fmt.Errorf("向量维度不匹配: 期望 %d 实际 %d", s.vectorSize, len(e.Embedding))
		}

		points = append(points, qdrantPoint{
			ID:     PointID(e.ChunkID),
			Vector: e.Embedding,
			Payload: map[string]any{
				"chunk_id":        e.ChunkID,
				"dataset_id":      e.DatasetID,
				"content":         e.Content,
				"chunk_index":     e.ChunkIndex,
				"token_count":     e.TokenCount,
				"embedding_model": e.EmbeddingModel,
			},
		})
	}

	req := upsertPointsRequest{Points: points}
	var resp qdrantOperationResponse
	if err := s.doRequest(ctx, http.MethodPut, s.collectionPath(name, "/points?wait=true"), req, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("qdrant upsert 失败: %s", resp.Error)
	}
	return nil
}

// Query 在集合内执行相似度检索
func (s *QdrantStore) Query(ctx context.Context, name string, vector []float32, topK int) ([]*SearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("查询向量不能为空")
	}
	if topK <= 0 {
		topK = 5
	}

	req := searchRequest{
		Vector:      vector,
		Limit:       topK,
		WithPayload: true,
	}

	var resp searchResponse
	if err := s.doRequest(ctx, http.MethodPost, s.collectionPath(name, "/points/search"), req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("qdrant search 失败: %s", resp.Error)
	}

	results := make([]*SearchResult, 0, len(resp.Result))
	for _, item := range resp.Result {
		payload := item.Payload
		content, _ := payload["content"].(string)

		results = append(results, &SearchResult{
			ChunkID:    stringFromPayload(payload, "chunk_id"),
			DatasetID:  stringFromPayload(payload, "dataset_id"),
			Content:    content,
			ChunkIndex: toInt(payload["chunk_index"]),
			Score:      item.Score,
		})
	}

	return results, nil
}

// Count 查询集合内的向量数量
func (s *QdrantStore) Count(ctx context.Context, name string) (int64, error) {
	var resp countResponse
	if err := s.doRequest(ctx, http.MethodPost, s.collectionPath(name, "/points/count"), countRequest{}, &resp); err != nil {
		return 0, err
	}
	if resp.Status != "ok" {
		return 0, fmt.Errorf("qdrant count 失败: %s", resp.Error)
	}
	return resp.Result.Count, nil
}

// --- 内部辅助 ---

func (s *QdrantStore) collectionPath(collection, path string) string {
	return fmt.Sprintf("/collections/%s%s", url.PathEscape(collection), path)
}

func (s *QdrantStore) doRequest(ctx context.Context, method, path string, payload any, dest any) error {
	var bodyReader *bytes.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		bodyReader = bytes.NewReader(buf)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	fullURL := s.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("qdrant API 错误: %s (%d)", errBody["status"], resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func stringFromPayload(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// --- Qdrant API payloads ---

type qdrantVectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type createCollectionRequest struct {
	Vectors qdrantVectorParams `json:"vectors"`
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type upsertPointsRequest struct {
	Points []qdrantPoint `json:"points"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Status string              `json:"status"`
	Result []searchResultEntry `json:"result"`
	Error  string              `json:"error"`
}

type searchResultEntry struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type qdrantOperationResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type countRequest struct{}

type countResponse struct {
	Status string `json:"status"`
	Result struct {
		Count int64 `json:"count"`
	} `json:"result"`
	Error string `json:"error"`
}
