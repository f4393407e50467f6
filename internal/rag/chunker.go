package rag

import (
	"errors"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// ErrInvalidChunking 非法的分块参数（size <= 0、overlap < 0 或 overlap >= size）
var ErrInvalidChunking = errors.New("非法的分块参数")

// Chunker 固定大小文档分块器。
// 按 rune 取长度为 Size 的子串，相邻分块重叠 Overlap 个字符，
// 起始偏移依次为 0, Size-Overlap, 2*(Size-Overlap), ...
type Chunker struct {
	Size    int // 分块大小(字符数)
	Overlap int // 重叠大小(字符数)
}

// NewChunker 创建分块器。overlap >= size 会导致步长归零，
// 在这里直接拒绝而不是静默修正。
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidChunking
	}
	return &Chunker{Size: size, Overlap: overlap}, nil
}

// ChunkResult 分块结果
type ChunkResult struct {
	Content     string // 分块内容
	Index       int    // 分块索引(从0开始)
	StartOffset int    // 起始偏移量(字符)
	EndOffset   int    // 结束偏移量(字符)
	TokenCount  int    // Token数量
}

// Chunk 对文本分块。空文本返回空切片；最后一个分块可以不足 Size。
// 只要起始偏移还在文本内就继续产出分块，
// 末尾可能出现一个完全落在上一块覆盖范围内的重叠小块。
func (c *Chunker) Chunk(text string) []*ChunkResult {
	if text == "" {
		return []*ChunkResult{}
	}

	runes := []rune(text)
	total := len(runes)
	step := c.Size - c.Overlap

	chunks := make([]*ChunkResult, 0, (total+step-1)/step)
	for start, index := 0, 0; start < total; start, index = start+step, index+1 {
		end := start + c.Size
		if end > total {
			end = total
		}

		content := string(runes[start:end])
		chunks = append(chunks, &ChunkResult{
			Content:     content,
			Index:       index,
			StartOffset: start,
			EndOffset:   end,
			TokenCount:  countTokens(content),
		})
	}

	return chunks
}

var (
	tokenEncoderOnce sync.Once
	tokenEncoder     *tiktoken.Tiktoken
)

// countTokens 用 tiktoken 计数，编码器不可用时退化为粗略估算
func countTokens(text string) int {
	tokenEncoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tokenEncoder = enc
		}
	})

	if tokenEncoder != nil {
		return len(tokenEncoder.Encode(text, nil, nil))
	}

	// 估算：英文按单词，中文按 1.5 字符一个 token
	words := len(strings.Fields(text))
	chinese := 0
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FA5 {
			chinese++
		}
	}
	return words + int(float64(chinese)/1.5)
}
