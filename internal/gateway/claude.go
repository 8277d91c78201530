package gateway

import (
	"context"
	"io"

	"luca-backend/internal/config"
	"luca-backend/internal/imaging"
	"luca-backend/internal/utils"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeModel = "claude-sonnet-4-20250514"

type claudeGateway struct {
	cfg config.ModelConfig
}

func newClaude(cfg config.ModelConfig) *claudeGateway {
	if cfg.Model == "" {
		cfg.Model = defaultClaudeModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &claudeGateway{cfg: cfg}
}

func (g *claudeGateway) CreateSession(ctx context.Context, credential, systemInstruction string) (Session, error) {
	if err := validate(credential, systemInstruction); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(credential),
		option.WithHTTPClient(utils.NewHTTPClient(g.cfg.Timeout, g.cfg.DebugRequest)),
	}
	if g.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(g.cfg.BaseURL))
	}

	return &claudeSession{
		client:      anthropic.NewClient(opts...),
		cfg:         g.cfg,
		instruction: systemInstruction,
		hist:        &history{},
	}, nil
}

type claudeSession struct {
	client      anthropic.Client
	cfg         config.ModelConfig
	instruction string
	hist        *history
}

func (s *claudeSession) Submit(ctx context.Context, text string, image *imaging.Part) (Stream, error) {
	if text == "" && image == nil {
		return nil, ErrEmptyMessage
	}

	var messages []anthropic.MessageParam
	for _, t := range s.hist.snapshot() {
		messages = append(messages, claudeUserMessage(t.userText, t.userImage))
		if t.reply != "" {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.reply)))
		}
	}
	messages = append(messages, claudeUserMessage(text, image))

	params := anthropic.MessageNewParams{
		Model:     s.cfg.Model,
		MaxTokens: int64(s.cfg.MaxTokens),
		Messages:  messages,
		System: []anthropic.TextBlockParam{
			{Text: s.instruction},
		},
	}

	stream := s.client.Messages.NewStreaming(ctx, params)

	recv := func() (string, error) {
		for stream.Next() {
			event := stream.Current()
			if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				return event.Delta.Text, nil
			}
		}
		if err := stream.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	closeFn := func() { _ = stream.Close() }

	return newTurnStream("claude", s.hist, text, image, recv, closeFn), nil
}

func claudeUserMessage(text string, image *imaging.Part) anthropic.MessageParam {
	var blocks []anthropic.ContentBlockParamUnion
	if image != nil {
		blocks = append(blocks, anthropic.NewImageBlockBase64(image.MIMEType, image.Base64Data))
	}
	if text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(text))
	}
	return anthropic.NewUserMessage(blocks...)
}
