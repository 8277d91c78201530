// Package gateway opens conversational sessions against an AI provider and
// streams the reply to each submitted turn as ordered text fragments.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"luca-backend/internal/config"
	"luca-backend/internal/imaging"
	"luca-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

var (
	ErrMissingCredential  = errors.New("API key is required to initialize chat session")
	ErrMissingInstruction = errors.New("system instruction is required to initialize chat session")
	ErrEmptyMessage       = errors.New("message has neither text nor image")
)

// Gateway creates provider sessions. Implementations are safe for concurrent use.
type Gateway interface {
	CreateSession(ctx context.Context, credential, systemInstruction string) (Session, error)
}

// Session is the provider-side conversation context. Only one Submit may be
// in flight per session; the caller serializes turns.
type Session interface {
	Submit(ctx context.Context, text string, image *imaging.Part) (Stream, error)
}

// Stream yields reply fragments in arrival order. Recv returns io.EOF once the
// provider closes the stream.
type Stream interface {
	Recv() (string, error)
	Close()
}

// New builds the gateway for the configured provider. It is called once at
// startup and the result is shared by every conversation.
func New(cfg config.ModelConfig) (Gateway, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAI(cfg), nil
	case "doubao", "qwen":
		return newEino(cfg), nil
	case "claude":
		return newClaude(cfg), nil
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}
}

func validate(credential, systemInstruction string) error {
	if strings.TrimSpace(credential) == "" {
		return ErrMissingCredential
	}
	if strings.TrimSpace(systemInstruction) == "" {
		return ErrMissingInstruction
	}
	return nil
}

// turn is one completed exchange kept as provider context.
type turn struct {
	userText  string
	userImage *imaging.Part
	reply     string
}

// history is the transcript a stateless provider API replays on each request.
type history struct {
	mu    sync.Mutex
	turns []turn
}

func (h *history) snapshot() []turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *history) commit(t turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, t)
}

// turnStream adapts a provider receive loop to Stream. The exchange is
// committed to history only when the provider finishes cleanly.
type turnStream struct {
	recv    func() (string, error)
	close   func()
	pending turn
	hist    *history
	reply   strings.Builder
	done    bool
	log     *logrus.Entry
}

func (s *turnStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	chunk, err := s.recv()
	if errors.Is(err, io.EOF) {
		s.done = true
		s.pending.reply = s.reply.String()
		s.hist.commit(s.pending)
		s.log.WithField("reply_len", len(s.pending.reply)).Debug("turn committed to session history")
		return "", io.EOF
	}
	if err != nil {
		s.done = true
		return "", wrapProviderError(err)
	}
	s.reply.WriteString(chunk)
	return chunk, nil
}

func (s *turnStream) Close() {
	if s.close != nil {
		s.close()
	}
}

func newTurnStream(provider string, hist *history, text string, image *imaging.Part, recv func() (string, error), closeFn func()) *turnStream {
	return &turnStream{
		recv:    recv,
		close:   closeFn,
		pending: turn{userText: text, userImage: image},
		hist:    hist,
		log:     logger.WithFields(logrus.Fields{"provider": provider}),
	}
}

var policyMarkers = []string{"candidates: 0", "content_filter", "content filter", "SAFETY"}

// wrapProviderError keeps the raw provider detail, which ends up verbatim in
// the user-visible error message.
func wrapProviderError(err error) error {
	msg := err.Error()
	for _, marker := range policyMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("AI content policy violation or invalid input. Please try rephrasing or using a different image. Details: %w", err)
		}
	}
	return fmt.Errorf("AI communication failed: %w", err)
}
