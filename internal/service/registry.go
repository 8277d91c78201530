package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"luca-backend/internal/config"
	"luca-backend/internal/gateway"
	"luca-backend/internal/i18n"
	"luca-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Registry keeps the live conversations of this process, keyed by id.
type Registry struct {
	gateway gateway.Gateway
	encoder ImageEncoder
	cfg     config.ConversationConfig
	apiKey  string

	mu    sync.RWMutex
	convs map[string]*Controller

	sched *cron.Cron
	now   func() time.Time
}

func NewRegistry(gw gateway.Gateway, encoder ImageEncoder, cfg *config.Config) *Registry {
	return &Registry{
		gateway: gw,
		encoder: encoder,
		cfg:     cfg.Conversation,
		apiKey:  cfg.Model.APIKey,
		convs:   make(map[string]*Controller),
		now:     time.Now,
	}
}

// Create starts a conversation and runs its first initialization. A missing
// credential still yields a conversation, holding the configuration error.
func (r *Registry) Create(ctx context.Context, lang i18n.Language) *Controller {
	if !lang.Valid() {
		lang = i18n.Language(r.cfg.DefaultLanguage)
	}

	c := NewController(r.gateway, ControllerOptions{
		ID:          uuid.NewString(),
		Credential:  r.apiKey,
		Language:    lang,
		Encoder:     r.encoder,
		TurnTimeout: r.cfg.TurnTimeout,
		Now:         r.now,
	})

	r.mu.Lock()
	r.convs[c.ID()] = c
	r.mu.Unlock()

	c.Initialize(ctx)
	logger.Infof("Created conversation %s (%s)", c.ID(), c.Language())
	return c
}

func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.convs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return c, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	c, ok := r.convs[id]
	delete(r.convs, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	c.Close()
	return nil
}

// List returns the live conversations, most recently active first.
func (r *Registry) List() []*Controller {
	r.mu.RLock()
	out := make([]*Controller, 0, len(r.convs))
	for _, c := range r.convs {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActive().After(out[j].LastActive())
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.convs)
}

// Sweep closes conversations idle for longer than the configured TTL.
// Conversations with a turn in flight are kept.
func (r *Registry) Sweep() int {
	if r.cfg.TTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.cfg.TTL)

	r.mu.Lock()
	var expired []*Controller
	for id, c := range r.convs {
		if c.LastActive().Before(cutoff) && !c.Busy() {
			expired = append(expired, c)
			delete(r.convs, id)
		}
	}
	r.mu.Unlock()

	for _, c := range expired {
		c.Close()
		logger.Infof("Cleaned up expired conversation: %s", c.ID())
	}
	return len(expired)
}

// StartCleanup schedules Sweep on the configured cron spec.
func (r *Registry) StartCleanup() error {
	sched := cron.New()
	if _, err := sched.AddFunc(r.cfg.CleanupSchedule, func() { r.Sweep() }); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", r.cfg.CleanupSchedule, err)
	}
	sched.Start()
	r.sched = sched
	return nil
}

// Close stops the cleanup schedule and closes every conversation.
func (r *Registry) Close() {
	if r.sched != nil {
		<-r.sched.Stop().Done()
	}

	r.mu.Lock()
	convs := r.convs
	r.convs = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range convs {
		c.Close()
	}
}
