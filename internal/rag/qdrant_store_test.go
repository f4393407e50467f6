package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"backend/internal/config"

	"github.com/google/uuid"
)

// fakeQdrant 模拟 Qdrant HTTP API 的最小子集
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]bool
	points      map[string][]qdrantPoint // collection -> points
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{
		collections: make(map[string]bool),
		points:      make(map[string][]qdrantPoint),
	}
}

func (f *fakeQdrant) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var collection, rest string
		fmt.Sscanf(r.URL.Path, "/collections/%s", &collection)
		for i, c := range collection {
			if c == '/' {
				rest = collection[i:]
				collection = collection[:i]
				break
			}
		}

		switch {
		case rest == "" && r.Method == http.MethodGet:
			if !f.collections[collection] {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]any{"status": "error"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"status": "ok"})

		case rest == "" && r.Method == http.MethodPut:
			f.collections[collection] = true
			json.NewEncoder(w).Encode(map[string]any{"status": "ok"})

		case rest == "/points" && r.Method == http.MethodPut:
			var req upsertPointsRequest
			json.NewDecoder(r.Body).Decode(&req)
			// 以 point id 为键覆盖
			existing := f.points[collection]
			for _, p := range req.Points {
				replaced := false
				for i, old := range existing {
					if old.ID == p.ID {
						existing[i] = p
						replaced = true
						break
					}
				}
				if !replaced {
					existing = append(existing, p)
				}
			}
			f.points[collection] = existing
			json.NewEncoder(w).Encode(map[string]any{"status": "ok"})

		case rest == "/points/search" && r.Method == http.MethodPost:
			var req searchRequest
			json.NewDecoder(r.Body).Decode(&req)
			results := []map[string]any{}
			for i, p := range f.points[collection] {
				if i >= req.Limit {
					break
				}
				results = append(results, map[string]any{
					"id":      p.ID,
					"score":   1.0 - float64(i)*0.1,
					"payload": p.Payload,
				})
			}
			json.NewEncoder(w).Encode(map[string]any{"status": "ok", "result": results})

		case rest == "/points/count" && r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]any{
				"status": "ok",
				"result": map[string]any{"count": len(f.points[collection])},
			})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

func newTestQdrantStore(t *testing.T) (*QdrantStore, *fakeQdrant) {
	t.Helper()
	fake := newFakeQdrant()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	store, err := NewQdrantStore(config.QdrantConfig{
		Endpoint:        srv.URL,
		VectorDimension: 3,
	}, srv.Client())
	if err != nil {
		t.Fatalf("NewQdrantStore: %v", err)
	}
	return store, fake
}

func TestQdrantStore_EnsureCollectionIdempotent(t *testing.T) {
	store, fake := newTestQdrantStore(t)
	ctx := context.Background()

	if err := store.EnsureCollection(ctx, "rag_abc"); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if !fake.collections["rag_abc"] {
		t.Fatalf("collection was not created")
	}
	// 第二次调用不报错
	if err := store.EnsureCollection(ctx, "rag_abc"); err != nil {
		t.Fatalf("second EnsureCollection: %v", err)
	}
}

func TestQdrantStore_UpsertUsesDerivedPointIDs(t *testing.T) {
	store, fake := newTestQdrantStore(t)
	ctx := context.Background()

	if err := store.EnsureCollection(ctx, "rag_abc"); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	entries := []*Entry{
		{ChunkID: "ds-1_0", DatasetID: "ds-1", Content: "hello", ChunkIndex: 0, Embedding: []float32{1, 2, 3}},
		{ChunkID: "ds-1_1", DatasetID: "ds-1", Content: "world", ChunkIndex: 1, Embedding: []float32{4, 5, 6}},
	}
	if err := store.Upsert(ctx, "rag_abc", entries); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	points := fake.points["rag_abc"]
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	// point id 是合法 uuid，且由 chunk id 确定性派生
	if _, err := uuid.Parse(points[0].ID); err != nil {
		t.Fatalf("point id is not a uuid: %s", points[0].ID)
	}
	if points[0].ID != PointID("ds-1_0") {
		t.Fatalf("point id is not deterministic")
	}
	// 原始 chunk id 保存在 payload 中
	if points[0].Payload["chunk_id"] != "ds-1_0" {
		t.Fatalf("chunk_id missing from payload: %v", points[0].Payload)
	}

	// 重复写入相同 chunk id 不增加数量
	if err := store.Upsert(ctx, "rag_abc", entries); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if got := len(fake.points["rag_abc"]); got != 2 {
		t.Fatalf("expected idempotent upsert, got %d points", got)
	}
}

func TestQdrantStore_UpsertRejectsWrongDimension(t *testing.T) {
	store, _ := newTestQdrantStore(t)

	err := store.Upsert(context.Background(), "rag_abc", []*Entry{
		{ChunkID: "ds-1_0", Embedding: []float32{1, 2}},
	})
	if err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestQdrantStore_QueryReturnsPayloadFields(t *testing.T) {
	store, _ := newTestQdrantStore(t)
	ctx := context.Background()

	if err := store.EnsureCollection(ctx, "rag_abc"); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if err := store.Upsert(ctx, "rag_abc", []*Entry{
		{ChunkID: "ds-1_0", DatasetID: "ds-1", Content: "alpha", ChunkIndex: 0, Embedding: []float32{1, 2, 3}},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := store.Query(ctx, "rag_abc", []float32{1, 2, 3}, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ChunkID != "ds-1_0" || results[0].DatasetID != "ds-1" || results[0].Content != "alpha" {
		t.Fatalf("unexpected result: %+v", results[0])
	}

	count, err := store.Count(ctx, "rag_abc")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
}

func TestCollectionName(t *testing.T) {
	if got := CollectionName("38cd5a6e-bbff"); got != "rag_38cd5a6e_bbff" {
		t.Fatalf("unexpected collection name: %s", got)
	}
	if got := CollectionName("abc123"); got != "rag_abc123" {
		t.Fatalf("unexpected collection name: %s", got)
	}
	// 所有非字母数字字符都替换为下划线
	if got := CollectionName("a.b/c d"); got != "rag_a_b_c_d" {
		t.Fatalf("unexpected collection name: %s", got)
	}
}
