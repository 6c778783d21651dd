package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/robfig/cron/v3"

	"washroom-tracker-client/config"
	"washroom-tracker-client/internal/store"
)

// ErrNoPushToken is returned when neither configuration nor storage holds a token.
var ErrNoPushToken = errors.New("notification: no push token available")

// TokenRegistrar is the backend call that records a device's push token.
type TokenRegistrar interface {
	RegisterPushToken(ctx context.Context, token, deviceType string) error
}

// Registrar keeps the backend informed of this device's push token.
type Registrar struct {
	api TokenRegistrar
	kv  store.Store
	cfg config.PushConfig
}

func NewRegistrar(api TokenRegistrar, kv store.Store, cfg config.PushConfig) *Registrar {
	return &Registrar{api: api, kv: kv, cfg: cfg}
}

// Token resolves the push token: a configured web push subscription, then a
// configured token, then the last stored one.
func (r *Registrar) Token(ctx context.Context) (string, error) {
	if ep := r.cfg.Subscription; ep != nil && ep.Endpoint != "" {
		sub := webpush.Subscription{
			Endpoint: ep.Endpoint,
			Keys: webpush.Keys{
				P256dh: ep.P256DH,
				Auth:   ep.Auth,
			},
		}
		payload, err := json.Marshal(sub)
		if err != nil {
			return "", fmt.Errorf("failed to encode push subscription: %w", err)
		}
		return string(payload), nil
	}
	if r.cfg.Token != "" {
		return r.cfg.Token, nil
	}

	token, ok, err := r.kv.Get(ctx, store.KeyPushToken)
	if err != nil {
		return "", fmt.Errorf("failed to read stored push token: %w", err)
	}
	if !ok || token == "" {
		return "", ErrNoPushToken
	}
	return token, nil
}

// Register persists the current token and sends it to the backend.
func (r *Registrar) Register(ctx context.Context) error {
	token, err := r.Token(ctx)
	if err != nil {
		return err
	}
	if err := r.kv.Put(ctx, map[string]string{store.KeyPushToken: token}); err != nil {
		log.Printf("Failed to persist push token: %v", err)
	}
	if err := r.api.RegisterPushToken(ctx, token, r.cfg.DeviceType); err != nil {
		return fmt.Errorf("failed to register push token: %w", err)
	}
	log.Printf("Push token registered for device type %s", r.cfg.DeviceType)
	return nil
}

// Start registers once and then on the configured schedule until ctx is done.
// Registration failures are logged and never stop the schedule.
func (r *Registrar) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(r.cfg.ReregisterSchedule, func() { r.registerLogged(ctx) }); err != nil {
		return fmt.Errorf("invalid push.reregister_schedule %q: %w", r.cfg.ReregisterSchedule, err)
	}

	r.registerLogged(ctx)
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		log.Println("Push token scheduler stopped.")
	}()
	return nil
}

func (r *Registrar) registerLogged(ctx context.Context) {
	if err := r.Register(ctx); err != nil {
		log.Printf("Push registration skipped: %v", err)
	}
}
