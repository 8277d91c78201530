package gateway

import (
	"context"
	"fmt"
	"io"
	"strings"

	"luca-backend/internal/imaging"
)

// Mock echoes each turn back word by word. It lets the service run end to end
// without a provider account.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) CreateSession(ctx context.Context, credential, systemInstruction string) (Session, error) {
	if err := validate(credential, systemInstruction); err != nil {
		return nil, err
	}
	return &mockSession{hist: &history{}}, nil
}

type mockSession struct {
	hist *history
}

func (s *mockSession) Submit(ctx context.Context, text string, image *imaging.Part) (Stream, error) {
	if text == "" && image == nil {
		return nil, ErrEmptyMessage
	}

	reply := fmt.Sprintf("You said: %q", text)
	if image != nil {
		reply += fmt.Sprintf(" (with a %s image)", image.MIMEType)
	}
	reply += fmt.Sprintf(". This is turn %d.", len(s.hist.snapshot())+1)

	words := strings.SplitAfter(reply, " ")
	i := 0
	recv := func() (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if i >= len(words) {
			return "", io.EOF
		}
		w := words[i]
		i++
		return w, nil
	}

	return newTurnStream("mock", s.hist, text, image, recv, nil), nil
}
