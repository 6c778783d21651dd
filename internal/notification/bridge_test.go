package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washroom-tracker-client/config"
)

const availablePayload = `{"notification":{"title":"Toilet free","body":"T3 is available"},"data":{"type":"toilet_available","toilet_id":"3"}}`

func TestDecode(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		want    Event
		wantErr bool
	}{
		{
			name: "toilet available with string id",
			raw:  availablePayload,
			want: Event{Kind: KindStallAvailable, Origin: OriginForeground, StallID: 3, Title: "Toilet free", Body: "T3 is available"},
		},
		{
			name: "session expiring with numeric id",
			raw:  `{"notification":{"title":"Time","body":"2 minutes left"},"data":{"type":"session_expiring","toilet_id":12}}`,
			want: Event{Kind: KindSessionExpiring, Origin: OriginForeground, StallID: 12, Title: "Time", Body: "2 minutes left"},
		},
		{
			name: "unknown type without id",
			raw:  `{"notification":{"title":"Hello","body":"Maintenance at 5pm"},"data":{"type":"announcement"}}`,
			want: Event{Kind: KindOther, Origin: OriginForeground, Title: "Hello", Body: "Maintenance at 5pm"},
		},
		{
			name:    "toilet available without id",
			raw:     `{"notification":{"title":"x","body":"y"},"data":{"type":"toilet_available"}}`,
			wantErr: true,
		},
		{
			name:    "toilet available with junk id",
			raw:     `{"notification":{"title":"x","body":"y"},"data":{"type":"toilet_available","toilet_id":"abc"}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     `hello`,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := Decode(OriginForeground, []byte(tc.raw))
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev)
		})
	}
}

func TestParseOrigin(t *testing.T) {
	assert.Equal(t, OriginOpened, ParseOrigin("opened"))
	assert.Equal(t, OriginBackground, ParseOrigin("background"))
	assert.Equal(t, OriginForeground, ParseOrigin(""))
	assert.Equal(t, OriginForeground, ParseOrigin("sideways"))
}

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	b := NewBridge(config.PushConfig{Workers: 1, DedupWindow: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	b.Start(ctx)
	return b
}

func TestBridge_PublishDeliversToHandlers(t *testing.T) {
	b := newTestBridge(t)

	got := make(chan Event, 2)
	b.OnPushMessage(func(ctx context.Context, ev Event) { got <- ev })
	b.OnPushMessage(func(ctx context.Context, ev Event) { got <- ev })

	ev, err := b.Publish(context.Background(), OriginBackground, []byte(availablePayload))
	require.NoError(t, err)
	assert.Equal(t, KindStallAvailable, ev.Kind)

	for i := 0; i < 2; i++ {
		select {
		case delivered := <-got:
			assert.Equal(t, int64(3), delivered.StallID)
			assert.Equal(t, OriginBackground, delivered.Origin)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}
}

func TestBridge_DropsDuplicates(t *testing.T) {
	b := newTestBridge(t)
	got := make(chan Event, 4)
	b.OnPushMessage(func(ctx context.Context, ev Event) { got <- ev })

	_, err := b.Publish(context.Background(), OriginForeground, []byte(availablePayload))
	require.NoError(t, err)
	_, err = b.Publish(context.Background(), OriginForeground, []byte(availablePayload))
	assert.ErrorIs(t, err, ErrDuplicate)

	// Tapping the notification is a distinct event.
	_, err = b.Publish(context.Background(), OriginOpened, []byte(availablePayload))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(got) == 2 }, time.Second, 5*time.Millisecond)
}

func TestBridge_Unsubscribe(t *testing.T) {
	b := newTestBridge(t)

	var calls int
	done := make(chan struct{}, 1)
	unsubscribe := b.OnPushMessage(func(ctx context.Context, ev Event) { calls++ })
	b.OnPushMessage(func(ctx context.Context, ev Event) { done <- struct{}{} })
	unsubscribe()

	_, err := b.Publish(context.Background(), OriginForeground, []byte(availablePayload))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	assert.Zero(t, calls)
}

func TestBridge_RejectsInvalidPayload(t *testing.T) {
	b := newTestBridge(t)
	_, err := b.Publish(context.Background(), OriginForeground, []byte(`{"data":{"type":"toilet_available","toilet_id":null}}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
