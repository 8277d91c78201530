package service

import (
	"context"
	"io"
	"sync"

	"luca-backend/internal/gateway"
	"luca-backend/internal/imaging"
)

type submission struct {
	text  string
	image *imaging.Part
}

// fakeGateway records every call and answers each submission with the
// stream built by reply. The default reply echoes the text in two fragments.
type fakeGateway struct {
	mu           sync.Mutex
	createErr    error
	createGate   chan struct{}
	instructions []string
	submits      []submission
	reply        func(n int, s submission) *fakeStream
}

func (g *fakeGateway) CreateSession(ctx context.Context, credential, systemInstruction string) (gateway.Session, error) {
	g.mu.Lock()
	g.instructions = append(g.instructions, systemInstruction)
	gate, createErr := g.createGate, g.createErr
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if createErr != nil {
		return nil, createErr
	}
	return &fakeSession{g: g}, nil
}

func (g *fakeGateway) submissions() []submission {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]submission, len(g.submits))
	copy(out, g.submits)
	return out
}

func (g *fakeGateway) sessionsCreated() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.instructions)
}

type fakeSession struct {
	g *fakeGateway
}

func (s *fakeSession) Submit(ctx context.Context, text string, image *imaging.Part) (gateway.Stream, error) {
	s.g.mu.Lock()
	sub := submission{text: text, image: image}
	s.g.submits = append(s.g.submits, sub)
	n := len(s.g.submits)
	reply := s.g.reply
	s.g.mu.Unlock()

	var st *fakeStream
	if reply != nil {
		st = reply(n, sub)
	} else {
		st = &fakeStream{chunks: []string{"echo: ", text}}
	}
	if st.submitErr != nil {
		return nil, st.submitErr
	}
	st.ctx = ctx
	return st, nil
}

type fakeStream struct {
	ctx       context.Context
	chunks    []string
	err       error
	submitErr error
	gate      chan struct{}
	i         int
}

func (s *fakeStream) Recv() (string, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-s.ctx.Done():
			return "", s.ctx.Err()
		}
	}
	if s.i < len(s.chunks) {
		c := s.chunks[s.i]
		s.i++
		return c, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() {}
