package gateway

import (
	"context"
	"fmt"

	"luca-backend/internal/config"
	"luca-backend/internal/imaging"
	"luca-backend/internal/utils"
	"luca-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
)

const defaultQwenBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// defaultEinoModels are vision-capable models used when no model is configured.
var defaultEinoModels = map[string]string{
	"doubao": "doubao-seed-1-6-250615",
	"qwen":   "qwen-vl-plus",
}

// einoGateway serves the providers reached through eino-ext chat models
// (Doubao via Ark, Qwen via DashScope).
type einoGateway struct {
	cfg config.ModelConfig
}

func newEino(cfg config.ModelConfig) *einoGateway {
	if cfg.Model == "" {
		cfg.Model = defaultEinoModels[cfg.Provider]
	}
	return &einoGateway{cfg: cfg}
}

func (g *einoGateway) CreateSession(ctx context.Context, credential, systemInstruction string) (Session, error) {
	if err := validate(credential, systemInstruction); err != nil {
		return nil, err
	}

	var (
		chatModel einoModel.ChatModel
		err       error
	)
	switch g.cfg.Provider {
	case "doubao":
		chatModel, err = createDoubaoModel(ctx, g.cfg, credential)
	case "qwen":
		chatModel, err = createQwenModel(ctx, g.cfg, credential)
	default:
		return nil, fmt.Errorf("unsupported eino provider: %s", g.cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s chat session: %w", g.cfg.Provider, err)
	}

	logger.WithFields(logrus.Fields{"provider": g.cfg.Provider, "model": g.cfg.Model}).Info("chat session created")

	return &einoSession{
		provider:    g.cfg.Provider,
		model:       chatModel,
		instruction: systemInstruction,
		hist:        &history{},
	}, nil
}

func createDoubaoModel(ctx context.Context, cfg config.ModelConfig, apiKey string) (einoModel.ChatModel, error) {
	arkCfg := &ark.ChatModelConfig{
		APIKey: apiKey,
		Model:  cfg.Model,
	}
	if cfg.BaseURL != "" {
		arkCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		arkCfg.Timeout = &cfg.Timeout
	}
	if cfg.MaxTokens > 0 {
		arkCfg.MaxTokens = &cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		arkCfg.Temperature = &cfg.Temperature
	}
	return ark.NewChatModel(ctx, arkCfg)
}

func createQwenModel(ctx context.Context, cfg config.ModelConfig, apiKey string) (einoModel.ChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultQwenBaseURL
	}

	return qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		Timeout:     cfg.Timeout,
		HTTPClient:  utils.NewHTTPClient(cfg.Timeout, cfg.DebugRequest),
	})
}

type einoSession struct {
	provider    string
	model       einoModel.ChatModel
	instruction string
	hist        *history
}

func (s *einoSession) Submit(ctx context.Context, text string, image *imaging.Part) (Stream, error) {
	if text == "" && image == nil {
		return nil, ErrEmptyMessage
	}

	messages := []*schema.Message{schema.SystemMessage(s.instruction)}
	for _, t := range s.hist.snapshot() {
		messages = append(messages, einoUserMessage(t.userText, t.userImage))
		if t.reply != "" {
			messages = append(messages, schema.AssistantMessage(t.reply, nil))
		}
	}
	messages = append(messages, einoUserMessage(text, image))

	reader, err := s.model.Stream(ctx, messages)
	if err != nil {
		return nil, wrapProviderError(err)
	}

	recv := func() (string, error) {
		for {
			msg, err := reader.Recv()
			if err != nil {
				return "", err
			}
			if msg != nil && msg.Content != "" {
				return msg.Content, nil
			}
		}
	}

	return newTurnStream(s.provider, s.hist, text, image, recv, reader.Close), nil
}

func einoUserMessage(text string, image *imaging.Part) *schema.Message {
	if image == nil {
		return schema.UserMessage(text)
	}
	var parts []schema.ChatMessagePart
	if text != "" {
		parts = append(parts, schema.ChatMessagePart{Type: schema.ChatMessagePartTypeText, Text: text})
	}
	parts = append(parts, schema.ChatMessagePart{
		Type: schema.ChatMessagePartTypeImageURL,
		ImageURL: &schema.ChatMessageImageURL{
			URL: image.DataURL(),
		},
	})
	return &schema.Message{Role: schema.User, MultiContent: parts}
}
