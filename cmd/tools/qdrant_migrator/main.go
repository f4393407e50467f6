package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"backend/internal/config"
	"backend/internal/infra"
	"backend/internal/logger"
	"backend/internal/rag"
)

// 把 pgvector 后端 rag_chunks 表里的向量批量搬到 Qdrant，
// 用于从 pgvector 切换到 qdrant 时保留已构建的索引。
func main() {
	env := flag.String("env", "dev", "配置环境 dev/prod/test")
	batchSize := flag.Int("batch", 200, "每批迁移的向量数量")
	dryRun := flag.Bool("dry-run", false, "仅打印不写入 Qdrant")
	flag.Parse()

	cfg, err := config.Load(*env, "")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// InitDatabase 依赖全局日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	db, err := infra.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer infra.CloseDatabase()

	store, err := rag.NewQdrantStore(cfg.RAG.VectorStore.Qdrant, nil)
	if err != nil {
		log.Fatalf("初始化 Qdrant 失败: %v", err)
	}

	ctx := context.Background()
	ensured := make(map[string]bool)
	totalMigrated := 0
	for {
		var chunks []rag.RagChunk
		if err := db.WithContext(ctx).
			Order("collection ASC, chunk_id ASC").
			Limit(*batchSize).
			Offset(totalMigrated).
			Find(&chunks).Error; err != nil {
			log.Fatalf("查询 rag_chunks 失败: %v", err)
		}

		if len(chunks) == 0 {
			break
		}

		// 向量按集合分组后写入，保持一个集合一次 Upsert
		grouped := make(map[string][]*rag.Entry)
		for i := range chunks {
			chunk := &chunks[i]
			grouped[chunk.Collection] = append(grouped[chunk.Collection], &rag.Entry{
				ChunkID:        chunk.ChunkID,
				DatasetID:      chunk.DatasetID,
				Content:        chunk.Content,
				ChunkIndex:     chunk.ChunkIndex,
				TokenCount:     chunk.TokenCount,
				Embedding:      chunk.Embedding.Slice(),
				EmbeddingModel: chunk.EmbeddingModel,
			})
		}

		for collection, entries := range grouped {
			if *dryRun {
				fmt.Printf("[dry-run] 集合 %s 计划迁移 %d 条向量\n", collection, len(entries))
				continue
			}
			if !ensured[collection] {
				if err := store.EnsureCollection(ctx, collection); err != nil {
					log.Fatalf("创建集合 %s 失败: %v", collection, err)
				}
				ensured[collection] = true
			}
			if err := store.Upsert(ctx, collection, entries); err != nil {
				log.Fatalf("写入 Qdrant 集合 %s 失败: %v", collection, err)
			}
		}

		totalMigrated += len(chunks)
		fmt.Printf("已处理 %d 条向量\n", totalMigrated)
	}

	fmt.Printf("迁移完成，总计 %d 条向量\n", totalMigrated)
}
