package rag

import (
	"context"
	"testing"
	"time"
)

func TestCachedEmbeddingProvider_EmbedHitsCache(t *testing.T) {
	inner := &fakeEmbeddingProvider{}
	cache := NewEmbeddingCache(nil, "emb-test:", time.Hour)
	provider := NewCachedEmbeddingProvider(inner, cache)

	ctx := context.Background()

	first, err := provider.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	second, err := provider.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed (cached): %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("向量长度不一致: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("缓存返回的向量与首次不一致, 位置 %d", i)
		}
	}
}

func TestCachedEmbeddingProvider_BatchOnlyEmbedsMisses(t *testing.T) {
	inner := &fakeEmbeddingProvider{}
	cache := NewEmbeddingCache(nil, "emb-test:", time.Hour)
	provider := NewCachedEmbeddingProvider(inner, cache)

	ctx := context.Background()

	if _, err := provider.EmbedBatch(ctx, []string{"alpha", "beta"}); err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if inner.batchCalls != 1 {
		t.Fatalf("期望调用底层 1 次, 实际 %d", inner.batchCalls)
	}

	// alpha/beta 命中缓存，只有 gamma 走底层
	vectors, err := provider.EmbedBatch(ctx, []string{"alpha", "gamma", "beta"})
	if err != nil {
		t.Fatalf("EmbedBatch (partial hit): %v", err)
	}
	if inner.batchCalls != 2 {
		t.Fatalf("期望调用底层 2 次, 实际 %d", inner.batchCalls)
	}
	if len(vectors) != 3 {
		t.Fatalf("期望 3 个向量, 实际 %d", len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) == 0 {
			t.Fatalf("位置 %d 的向量为空", i)
		}
	}

	// 全部命中时不再调用底层
	if _, err := provider.EmbedBatch(ctx, []string{"gamma", "alpha"}); err != nil {
		t.Fatalf("EmbedBatch (full hit): %v", err)
	}
	if inner.batchCalls != 2 {
		t.Fatalf("全部命中仍调用了底层, 调用次数 %d", inner.batchCalls)
	}
}
