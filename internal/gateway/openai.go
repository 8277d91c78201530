package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"

	"luca-backend/internal/config"
	"luca-backend/internal/imaging"
	"luca-backend/internal/utils"

	openai "github.com/sashabaranov/go-openai"
)

type openAIGateway struct {
	cfg        config.ModelConfig
	httpClient *http.Client
}

func newOpenAI(cfg config.ModelConfig) *openAIGateway {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	return &openAIGateway{
		cfg:        cfg,
		httpClient: utils.NewHTTPClient(cfg.Timeout, cfg.DebugRequest),
	}
}

func (g *openAIGateway) CreateSession(ctx context.Context, credential, systemInstruction string) (Session, error) {
	if err := validate(credential, systemInstruction); err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(credential)
	if g.cfg.BaseURL != "" {
		clientConfig.BaseURL = g.cfg.BaseURL
	}
	clientConfig.HTTPClient = g.httpClient

	return &openAISession{
		client:      openai.NewClientWithConfig(clientConfig),
		cfg:         g.cfg,
		instruction: systemInstruction,
		hist:        &history{},
	}, nil
}

type openAISession struct {
	client      *openai.Client
	cfg         config.ModelConfig
	instruction string
	hist        *history
}

func (s *openAISession) Submit(ctx context.Context, text string, image *imaging.Part) (Stream, error) {
	if text == "" && image == nil {
		return nil, ErrEmptyMessage
	}

	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: s.instruction,
	}}
	for _, t := range s.hist.snapshot() {
		messages = append(messages, openAIUserMessage(t.userText, t.userImage))
		if t.reply != "" {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: t.reply,
			})
		}
	}
	messages = append(messages, openAIUserMessage(text, image))

	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		TopP:        s.cfg.TopP,
		Stream:      true,
	})
	if err != nil {
		return nil, wrapProviderError(err)
	}

	recv := func() (string, error) {
		for {
			resp, err := stream.Recv()
			if err != nil {
				return "", err
			}
			if len(resp.Choices) == 0 {
				continue
			}
			choice := resp.Choices[0]
			if choice.FinishReason == openai.FinishReasonContentFilter {
				return "", errors.New("response stopped by content_filter")
			}
			if choice.Delta.Content != "" {
				return choice.Delta.Content, nil
			}
			if choice.FinishReason != "" {
				return "", io.EOF
			}
		}
	}
	closeFn := func() { _ = stream.Close() }

	return newTurnStream("openai", s.hist, text, image, recv, closeFn), nil
}

func openAIUserMessage(text string, image *imaging.Part) openai.ChatCompletionMessage {
	if image == nil {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	}
	var parts []openai.ChatMessagePart
	if text != "" {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: text})
	}
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    image.DataURL(),
			Detail: openai.ImageURLDetailAuto,
		},
	})
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}
