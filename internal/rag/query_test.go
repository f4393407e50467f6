package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestQueryEngine_AnswerReturnsTopDocument(t *testing.T) {
	fx := setupBuildFixture(t, 2)
	ctx := context.Background()

	sentence := "the capital of France is Paris"
	d := fx.createDataset(t, sentence)
	cfg, err := fx.rags.Create(ctx, CreateInput{
		Name:       "qa rag",
		MadeByUser: "u-1",
		DatasetIDs: []string{d.ID},
		LLMModel:   "gpt-4",
		ChunkSize:  100,
	})
	if err != nil {
		t.Fatalf("create rag: %v", err)
	}
	if _, err := fx.builder.Build(ctx, cfg.ID); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	llm := &fakeLLM{}
	engine := NewQueryEngine(fx.rags, fx.embedder, fx.store, llm)

	result, err := engine.Answer(ctx, cfg.ID, "what is the capital of France", 5)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if result.Answer == "" {
		t.Fatalf("expected non-empty answer")
	}
	if len(result.Sources) == 0 || !strings.Contains(result.Sources[0].Content, sentence) {
		t.Fatalf("expected top source to contain the indexed sentence, got %+v", result.Sources)
	}

	// 检索内容以 assistant 消息注入
	if len(llm.lastMessages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(llm.lastMessages))
	}
	if llm.lastMessages[0].Role != "system" || llm.lastMessages[1].Role != "user" || llm.lastMessages[2].Role != "assistant" {
		t.Fatalf("unexpected message roles: %+v", llm.lastMessages)
	}
	if !strings.Contains(llm.lastMessages[2].Content, sentence) {
		t.Fatalf("retrieved context missing from assistant message")
	}
}

func TestQueryEngine_SearchPreservesRank(t *testing.T) {
	fx := setupBuildFixture(t, 2)
	ctx := context.Background()

	d1 := fx.createDataset(t, "alpha beta gamma delta epsilon zeta")
	d2 := fx.createDataset(t, "one two three four five six seven")
	cfg, err := fx.rags.Create(ctx, CreateInput{
		Name:       "rank rag",
		MadeByUser: "u-1",
		DatasetIDs: []string{d1.ID, d2.ID},
		LLMModel:   "gpt-4",
		ChunkSize:  100,
	})
	if err != nil {
		t.Fatalf("create rag: %v", err)
	}
	if _, err := fx.builder.Build(ctx, cfg.ID); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	engine := NewQueryEngine(fx.rags, fx.embedder, fx.store, &fakeLLM{})

	results, err := engine.Search(ctx, cfg.ID, "alpha beta gamma delta epsilon zeta", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// 与查询文本相同的分块排在最前
	if results[0].DatasetID != d1.ID {
		t.Fatalf("expected best match first, got %+v", results[0])
	}
	if results[0].Score < results[1].Score {
		t.Fatalf("results not ordered by score")
	}
}

func TestQueryEngine_EmptyCollectionReturnsErrNoDocuments(t *testing.T) {
	fx := setupBuildFixture(t, 2)
	ctx := context.Background()

	cfg, err := fx.rags.Create(ctx, CreateInput{
		Name:       "empty rag",
		MadeByUser: "u-1",
		DatasetIDs: []string{},
		LLMModel:   "gpt-4",
		ChunkSize:  100,
	})
	if err != nil {
		t.Fatalf("create rag: %v", err)
	}
	// 构建空数据集列表：集合存在但没有任何向量
	if _, err := fx.builder.Build(ctx, cfg.ID); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	engine := NewQueryEngine(fx.rags, fx.embedder, fx.store, &fakeLLM{})

	if _, err := engine.Search(ctx, cfg.ID, "anything", 5); !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
	if _, err := engine.Answer(ctx, cfg.ID, "anything", 5); !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
}

func TestQueryEngine_UnknownRag(t *testing.T) {
	fx := setupBuildFixture(t, 2)
	engine := NewQueryEngine(fx.rags, fx.embedder, fx.store, &fakeLLM{})

	if _, err := engine.Search(context.Background(), "no-such-rag", "q", 5); !errors.Is(err, ErrRagNotFound) {
		t.Fatalf("expected ErrRagNotFound, got %v", err)
	}
}
