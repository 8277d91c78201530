package service

import (
	"context"
	"testing"
	"time"

	"luca-backend/internal/config"
	"luca-backend/internal/i18n"
	"luca-backend/internal/imaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(gw *fakeGateway, apiKey string) (*Registry, *time.Time) {
	cfg := &config.Config{}
	cfg.Model.APIKey = apiKey
	cfg.Conversation = config.ConversationConfig{
		DefaultLanguage: "en",
		TTL:             time.Hour,
		CleanupSchedule: "@every 1h",
	}
	r := NewRegistry(gw, imaging.NewEncoder(0), cfg)
	clock := fixedTime
	r.now = func() time.Time { return clock }
	return r, &clock
}

func TestRegistryLifecycle(t *testing.T) {
	r, _ := newTestRegistry(&fakeGateway{}, "key")
	defer r.Close()

	c := r.Create(context.Background(), i18n.HI)
	assert.Equal(t, i18n.HI, c.Language())
	assert.True(t, c.Snapshot().Ready)

	got, err := r.Get(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)

	require.NoError(t, r.Delete(c.ID()))
	_, err = r.Get(c.ID())
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.ErrorIs(t, r.Delete(c.ID()), ErrConversationNotFound)
}

func TestRegistryDefaultsLanguage(t *testing.T) {
	r, _ := newTestRegistry(&fakeGateway{}, "")
	defer r.Close()

	c := r.Create(context.Background(), i18n.Language("xx"))
	assert.Equal(t, i18n.EN, c.Language())
	assert.False(t, c.Snapshot().Ready)
}

func TestRegistrySweep(t *testing.T) {
	r, clock := newTestRegistry(&fakeGateway{}, "key")
	defer r.Close()
	ctx := context.Background()

	stale := r.Create(ctx, i18n.EN)
	*clock = clock.Add(50 * time.Minute)
	fresh := r.Create(ctx, i18n.EN)
	*clock = clock.Add(20 * time.Minute)

	assert.Equal(t, 1, r.Sweep())
	_, err := r.Get(stale.ID())
	assert.ErrorIs(t, err, ErrConversationNotFound)
	_, err = r.Get(fresh.ID())
	assert.NoError(t, err)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryStartCleanup(t *testing.T) {
	r, _ := newTestRegistry(&fakeGateway{}, "key")
	require.NoError(t, r.StartCleanup())
	r.Close()

	r.cfg.CleanupSchedule = "every so often"
	assert.Error(t, r.StartCleanup())
}

func TestRegistryListOrdersByActivity(t *testing.T) {
	r, clock := newTestRegistry(&fakeGateway{}, "key")
	defer r.Close()
	ctx := context.Background()

	older := r.Create(ctx, i18n.EN)
	*clock = clock.Add(time.Minute)
	newer := r.Create(ctx, i18n.EN)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID(), list[0].ID())
	assert.Equal(t, older.ID(), list[1].ID())
}
