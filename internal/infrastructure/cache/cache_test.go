package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tradelinemarket/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// ==================== InMemoryStore ====================

func TestInMemoryStore_GetSet(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, err = store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "forever", []byte("v"), 0))
	_, err = store.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestInMemoryStore_SetNX(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "evt_1", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "evt_1", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryStore_SetNXConcurrent(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := store.SetNX(ctx, "race", []byte("1"), time.Minute)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestInMemoryStore_DeletePattern(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()
	ctx := context.Background()

	b1, b2 := uuid.New(), uuid.New()
	require.NoError(t, store.Set(ctx, PricingBrokerKey(b1), []byte("1"), TTLPricing))
	require.NoError(t, store.Set(ctx, PricingBrokerKey(b2), []byte("2"), TTLPricing))
	require.NoError(t, store.Set(ctx, KeyPricingBase, []byte("3"), TTLPricing))
	require.NoError(t, store.Set(ctx, BrokerKey(b1), []byte("4"), TTLBroker))

	n, err := store.DeletePattern(ctx, PatternPricingBrokers)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = store.Get(ctx, KeyPricingBase)
	assert.NoError(t, err)
	_, err = store.Get(ctx, BrokerKey(b1))
	assert.NoError(t, err)
	_, err = store.Get(ctx, PricingBrokerKey(b1))
	assert.ErrorIs(t, err, ErrMiss)
}

func TestInMemoryStore_Sweeper(t *testing.T) {
	store := newInMemoryStore(10 * time.Millisecond)
	defer store.Close()

	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), time.Millisecond))
	assert.Eventually(t, func() bool { return store.Size() == 0 }, time.Second, 10*time.Millisecond)
}

func TestInMemoryStore_CloseTwice(t *testing.T) {
	store := NewInMemoryStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

// ==================== Advisory ====================

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *MockStore) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	args := m.Called(ctx, pattern)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

type pricedItem struct {
	CardID string `json:"card_id"`
	Price  int64  `json:"price"`
}

func TestAdvisory_RoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()
	c := NewAdvisory(store, nil)
	ctx := context.Background()

	var out []pricedItem
	assert.False(t, c.Get(ctx, KeyPricingBase, &out))

	c.Set(ctx, KeyPricingBase, []pricedItem{{CardID: "101", Price: 50000}}, TTLPricing)
	require.True(t, c.Get(ctx, KeyPricingBase, &out))
	assert.Equal(t, []pricedItem{{CardID: "101", Price: 50000}}, out)

	c.Delete(ctx, KeyPricingBase)
	assert.False(t, c.Get(ctx, KeyPricingBase, &out))
}

func TestAdvisory_SwallowsStoreErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := new(MockStore)
	c := NewAdvisory(store, zap.New(core))
	ctx := context.Background()
	boom := errors.New("connection refused")

	store.On("Get", ctx, "k").Return(nil, boom)
	store.On("Set", ctx, "k", mock.Anything, time.Minute).Return(boom)
	store.On("Delete", ctx, []string{"k"}).Return(boom)
	store.On("DeletePattern", ctx, "broker:*").Return(int64(0), boom)
	store.On("SetNX", ctx, "evt", mock.Anything, time.Hour).Return(false, boom)

	var v string
	assert.False(t, c.Get(ctx, "k", &v))
	c.Set(ctx, "k", "v", time.Minute)
	c.Delete(ctx, "k")
	c.DeletePattern(ctx, "broker:*")
	assert.True(t, c.Claim(ctx, "evt", time.Hour))

	assert.Equal(t, 5, logs.Len())
	store.AssertExpectations(t)
}

func TestAdvisory_MissIsNotLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := new(MockStore)
	c := NewAdvisory(store, zap.New(core))
	ctx := context.Background()

	store.On("Get", ctx, "k").Return(nil, ErrMiss)

	var v string
	assert.False(t, c.Get(ctx, "k", &v))
	assert.Zero(t, logs.Len())
}

func TestAdvisory_DropsCorruptedEntry(t *testing.T) {
	store := new(MockStore)
	c := NewAdvisory(store, zap.NewNop())
	ctx := context.Background()

	store.On("Get", ctx, "k").Return([]byte("{not json"), nil)
	store.On("Delete", ctx, []string{"k"}).Return(nil)

	var v map[string]any
	assert.False(t, c.Get(ctx, "k", &v))
	store.AssertCalled(t, "Delete", ctx, []string{"k"})
}

func TestAdvisory_Nil(t *testing.T) {
	var c *Advisory
	ctx := context.Background()
	var v string

	assert.False(t, c.Get(ctx, "k", &v))
	c.Set(ctx, "k", "v", time.Minute)
	c.Delete(ctx, "k")
	c.DeletePattern(ctx, "*")
	assert.True(t, c.Claim(ctx, "k", time.Minute))
}

func TestAdvisory_Claim(t *testing.T) {
	store := NewInMemoryStore()
	defer store.Close()
	c := NewAdvisory(store, nil)
	ctx := context.Background()

	assert.True(t, c.Claim(ctx, "webhook:evt_1", time.Hour))
	assert.False(t, c.Claim(ctx, "webhook:evt_1", time.Hour))
}

// ==================== StoreFactory ====================

func TestStoreFactory_CreateStore(t *testing.T) {
	unreachable := func(addr, password string, db int) (Store, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	tests := []struct {
		name       string
		cfg        config.RedisConfig
		fallback   bool
		connect    func(string, string, int) (Store, error)
		wantErr    bool
		wantMemory bool
	}{
		{
			name:       "disabled uses memory",
			cfg:        config.RedisConfig{Enabled: false},
			fallback:   false,
			wantMemory: true,
		},
		{
			name:       "unreachable falls back",
			cfg:        config.RedisConfig{Enabled: true, Host: "localhost", Port: 6379},
			fallback:   true,
			connect:    unreachable,
			wantMemory: true,
		},
		{
			name:     "unreachable without fallback fails",
			cfg:      config.RedisConfig{Enabled: true, Host: "localhost", Port: 6379},
			fallback: false,
			connect:  unreachable,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewStoreFactory(tt.cfg, WithInMemoryFallback(tt.fallback))
			if tt.connect != nil {
				f.connect = tt.connect
			}

			store, err := f.CreateStore()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			_, isMemory := store.(*InMemoryStore)
			assert.Equal(t, tt.wantMemory, isMemory)
		})
	}
}

func TestStoreFactory_UsesRedisWhenReachable(t *testing.T) {
	fake := NewInMemoryStore()
	defer fake.Close()

	var gotAddr string
	f := NewStoreFactory(config.RedisConfig{Enabled: true, Host: "cache", Port: 6380})
	f.connect = func(addr, password string, db int) (Store, error) {
		gotAddr = addr
		return fake, nil
	}

	store, err := f.CreateStore()
	require.NoError(t, err)
	assert.Same(t, fake, store)
	assert.Equal(t, "cache:6380", gotAddr)
}
