package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadscore_backend/internal/leadscoring/domain"
	"leadscore_backend/platform/apperr"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() State {
	offer := domain.Offer{
		Name:          "AI Outreach Automation",
		ValueProps:    []string{"24/7 outreach", "6x more meetings"},
		IdealUseCases: []string{"B2B SaaS mid-market"},
	}
	return State{
		Offer: &offer,
		Leads: []domain.Lead{{
			Name:        "Ava Patel",
			Role:        "Head of Growth",
			Company:     "FlowMetrics",
			Industry:    "B2B SaaS mid-market",
			Location:    "Berlin",
			LinkedInBio: "Growth leader",
			Extra:       map[string]string{"email": "ava@flowmetrics.io"},
		}},
		Results: []domain.ScoredResult{{
			Name: "Ava Patel", Role: "Head of Growth", Company: "FlowMetrics",
			Intent: domain.IntentHigh, Score: 100, Reasoning: "High fit",
		}},
	}
}

func TestValidateID(t *testing.T) {
	id, err := ValidateID("")
	require.NoError(t, err)
	assert.Equal(t, DefaultID, id)

	id, err = ValidateID(DefaultID)
	require.NoError(t, err)
	assert.Equal(t, DefaultID, id)

	fresh := NewID()
	id, err = ValidateID(fresh)
	require.NoError(t, err)
	assert.Equal(t, fresh, id)

	_, err = ValidateID("../etc/passwd")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestStateCloneIsIndependent(t *testing.T) {
	orig := sampleState()
	clone := orig.Clone()

	clone.Offer.ValueProps[0] = "changed"
	clone.Leads[0].Extra["email"] = "changed"
	clone.Results[0].Score = 0

	assert.Equal(t, "24/7 outreach", orig.Offer.ValueProps[0])
	assert.Equal(t, "ava@flowmetrics.io", orig.Leads[0].Extra["email"])
	assert.Equal(t, 100, orig.Results[0].Score)
}

func TestMemoryStoreUnknownSessionIsEmpty(t *testing.T) {
	store := NewMemoryStore(0)
	state, err := store.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, state.Offer)
	assert.Empty(t, state.Leads)
	assert.Empty(t, state.Results)
}

func TestMemoryStoreDoesNotAliasCallerState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	state := sampleState()
	require.NoError(t, store.Save(ctx, DefaultID, state))

	state.Results[0].Score = 1
	loaded, err := store.Load(ctx, DefaultID)
	require.NoError(t, err)
	assert.Equal(t, 100, loaded.Results[0].Score)
}

func TestMemoryStoreExpiresSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "a", sampleState()))
	now = now.Add(30 * time.Minute)
	require.NoError(t, store.Save(ctx, "b", sampleState()))

	loaded, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.NotNil(t, loaded.Offer)

	now = now.Add(45 * time.Minute)
	expired, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, expired.Offer)
	assert.Equal(t, 1, store.size())

	now = now.Add(time.Hour)
	require.NoError(t, store.Save(ctx, "c", sampleState()))
	assert.Equal(t, 1, store.size(), "expired sessions are evicted on save")
}

func TestMemoryStoreWithoutTTLKeepsSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	store.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, store.Save(ctx, DefaultID, sampleState()))

	store.now = func() time.Time { return time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC) }
	loaded, err := store.Load(ctx, DefaultID)
	require.NoError(t, err)
	assert.NotNil(t, loaded.Offer)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := NewRedisStore(client, time.Hour)

	empty, err := store.Load(ctx, DefaultID)
	require.NoError(t, err)
	assert.Nil(t, empty.Offer)

	want := sampleState()
	require.NoError(t, store.Save(ctx, DefaultID, want))

	got, err := store.Load(ctx, DefaultID)
	require.NoError(t, err)
	assert.Equal(t, want.Offer, got.Offer)
	assert.Equal(t, want.Leads, got.Leads)
	assert.Equal(t, want.Results, got.Results)

	assert.True(t, mr.Exists(redisKeyPrefix+DefaultID))
	assert.Equal(t, time.Hour, mr.TTL(redisKeyPrefix+DefaultID))

	mr.FastForward(2 * time.Hour)
	expired, err := store.Load(ctx, DefaultID)
	require.NoError(t, err)
	assert.Nil(t, expired.Offer)
}

func TestRedisStoreCorruptDocument(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set(redisKeyPrefix+DefaultID, "{not json"))
	_, err := NewRedisStore(client, 0).Load(context.Background(), DefaultID)
	require.Error(t, err)
}

func TestNewRedisClientConnects(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	_ = client.Close()

	_, err = NewRedisClient(context.Background(), "not a url")
	require.Error(t, err)
}

func TestManagerUpdateSerializesPerSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(ctx, DefaultID, func(s *State) error {
				s.Leads = append(s.Leads, domain.Lead{Name: "x"})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := m.Get(ctx, DefaultID)
	require.NoError(t, err)
	assert.Len(t, state.Leads, 50)
	assert.False(t, state.UpdatedAt.IsZero())
}

func TestManagerUpdateErrorSavesNothing(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(0))
	boom := errors.New("boom")

	_, err := m.Update(ctx, DefaultID, func(s *State) error {
		s.Leads = []domain.Lead{{Name: "x"}}
		return boom
	})
	require.ErrorIs(t, err, boom)

	state, err := m.Get(ctx, DefaultID)
	require.NoError(t, err)
	assert.Empty(t, state.Leads)
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) (State, error) {
	return State{}, errors.New("connection refused")
}
func (failingStore) Save(context.Context, string, State) error { return nil }

func TestManagerStoreFailureIsInternal(t *testing.T) {
	_, err := NewManager(failingStore{}).Get(context.Background(), DefaultID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}

func TestManagerLocksDoNotAccumulate(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(0))

	for i := 0; i < 200; i++ {
		_, err := m.Get(ctx, NewID())
		require.NoError(t, err)
	}
	assert.Equal(t, 0, m.locks.size())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(ctx, DefaultID, func(*State) error { return nil })
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, m.locks.size())
}

func TestKeyedMutexSerializesOneKey(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")

	acquired := make(chan struct{})
	go func() {
		release := k.Lock("a")
		close(acquired)
		release()
	}()

	otherDone := make(chan struct{})
	go func() {
		k.Lock("b")()
		close(otherDone)
	}()
	select {
	case <-otherDone:
	case <-time.After(time.Second):
		t.Fatalf("a different key should not wait")
	}

	select {
	case <-acquired:
		t.Fatalf("second holder acquired a locked key")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("waiter never acquired the key")
	}
}
