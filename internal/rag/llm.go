package rag

import (
	"context"
	"fmt"

	"backend/internal/config"

	"github.com/sashabaranov/go-openai"
)

// ChatMessage 一条对话消息
type ChatMessage struct {
	Role    string // system / user / assistant
	Content string
}

// LLMProvider 抽象聊天补全服务。失败直接上抛，不做重试。
type LLMProvider interface {
	Complete(ctx context.Context, model string, messages []ChatMessage) (string, error)
}

// OpenAILLMProvider 基于 go-openai 的聊天补全实现
type OpenAILLMProvider struct {
	client *openai.Client
}

// NewOpenAILLMProvider 创建 OpenAI 聊天补全提供者
func NewOpenAILLMProvider(cfg config.OpenAIConfig) *OpenAILLMProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.OrgID != "" {
		clientCfg.OrgID = cfg.OrgID
	}
	return &OpenAILLMProvider{client: openai.NewClientWithConfig(clientCfg)}
}

// Complete 发出一次聊天补全请求，返回第一个候选的原始文本
func (p *OpenAILLMProvider) Complete(ctx context.Context, model string, messages []ChatMessage) (string, error) {
	reqMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: reqMessages,
	})
	if err != nil {
		return "", fmt.Errorf("调用聊天补全API失败: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("聊天补全API返回空结果")
	}

	return resp.Choices[0].Message.Content, nil
}
