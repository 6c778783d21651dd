package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washroom-tracker-client/config"
	"washroom-tracker-client/internal/store"
)

// mockKV is an in-memory store.Store.
type mockKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockKV() *mockKV { return &mockKV{data: make(map[string]string)} }

func (m *mockKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockKV) Put(ctx context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.data[k] = v
	}
	return nil
}

func (m *mockKV) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// mockRegistrarAPI is a mock implementation of the TokenRegistrar interface.
type mockRegistrarAPI struct {
	RegisterPushTokenFunc func(ctx context.Context, token, deviceType string) error
}

func (m *mockRegistrarAPI) RegisterPushToken(ctx context.Context, token, deviceType string) error {
	return m.RegisterPushTokenFunc(ctx, token, deviceType)
}

func TestRegistrar_Token(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     config.PushConfig
		stored  string
		check   func(t *testing.T, token string)
		wantErr error
	}{
		{
			name: "web push subscription wins",
			cfg: config.PushConfig{
				Token:        "ignored",
				Subscription: &config.WebPushEndpoint{Endpoint: "https://push.example/abc", P256DH: "p", Auth: "a"},
			},
			check: func(t *testing.T, token string) {
				var sub webpush.Subscription
				require.NoError(t, json.Unmarshal([]byte(token), &sub))
				assert.Equal(t, "https://push.example/abc", sub.Endpoint)
				assert.Equal(t, "p", sub.Keys.P256dh)
				assert.Equal(t, "a", sub.Keys.Auth)
			},
		},
		{
			name:   "configured token",
			cfg:    config.PushConfig{Token: "cfg-token"},
			stored: "old-token",
			check: func(t *testing.T, token string) {
				assert.Equal(t, "cfg-token", token)
			},
		},
		{
			name:   "stored token",
			stored: "old-token",
			check: func(t *testing.T, token string) {
				assert.Equal(t, "old-token", token)
			},
		},
		{
			name:    "nothing available",
			wantErr: ErrNoPushToken,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			kv := newMockKV()
			if tc.stored != "" {
				kv.data[store.KeyPushToken] = tc.stored
			}
			r := NewRegistrar(nil, kv, tc.cfg)

			token, err := r.Token(context.Background())
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.check(t, token)
		})
	}
}

func TestRegistrar_RegisterPersistsAndSends(t *testing.T) {
	kv := newMockKV()
	var gotToken, gotDevice string
	api := &mockRegistrarAPI{RegisterPushTokenFunc: func(ctx context.Context, token, deviceType string) error {
		gotToken, gotDevice = token, deviceType
		return nil
	}}

	r := NewRegistrar(api, kv, config.PushConfig{Token: "tok", DeviceType: "linux"})
	require.NoError(t, r.Register(context.Background()))

	assert.Equal(t, "tok", gotToken)
	assert.Equal(t, "linux", gotDevice)
	assert.Equal(t, "tok", kv.data[store.KeyPushToken])
}

func TestRegistrar_RegisterFailureKeepsToken(t *testing.T) {
	kv := newMockKV()
	api := &mockRegistrarAPI{RegisterPushTokenFunc: func(ctx context.Context, token, deviceType string) error {
		return errors.New("backend down")
	}}

	r := NewRegistrar(api, kv, config.PushConfig{Token: "tok", DeviceType: "linux"})
	assert.Error(t, r.Register(context.Background()))
	assert.Equal(t, "tok", kv.data[store.KeyPushToken])
}

func TestRegistrar_Start(t *testing.T) {
	registered := make(chan string, 1)
	api := &mockRegistrarAPI{RegisterPushTokenFunc: func(ctx context.Context, token, deviceType string) error {
		registered <- token
		return nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRegistrar(api, newMockKV(), config.PushConfig{Token: "tok", DeviceType: "linux", ReregisterSchedule: "@every 12h"})
	require.NoError(t, r.Start(ctx))

	select {
	case token := <-registered:
		assert.Equal(t, "tok", token)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate registration")
	}
}

func TestRegistrar_StartRejectsBadSchedule(t *testing.T) {
	r := NewRegistrar(&mockRegistrarAPI{}, newMockKV(), config.PushConfig{Token: "tok", ReregisterSchedule: "whenever"})
	assert.Error(t, r.Start(context.Background()))
}
