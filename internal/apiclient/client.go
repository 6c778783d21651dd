package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"washroom-tracker-client/config"
	"washroom-tracker-client/internal/model"
)

// Limiter settings used when the config leaves them unset.
const (
	defaultRateLimitPerSec = 5
	defaultBurst           = 5
)

// Client calls the washroom backend. Every call is attempted exactly once.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *Credentials
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// New creates a client for the configured backend. creds supplies the bearer
// token; it may be shared with the session that issues the token.
func New(cfg config.APIConfig, creds *Credentials) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. API client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	if creds == nil {
		creds = NewCredentials()
	}

	limit, burst := cfg.RateLimitPerSec, cfg.Burst
	if limit <= 0 {
		limit = defaultRateLimitPerSec
	}
	if burst <= 0 {
		burst = defaultBurst
	}

	c := &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		creds:   creds,
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker)
	}
	return c
}

// newBreaker opens after MaxFailures consecutive transport failures. HTTP
// error statuses do not count: the backend answered.
func newBreaker(cfg config.BreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "washroom-api",
		MaxRequests: 1,
		Timeout:     time.Duration(cfg.OpenSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

type loginRequest struct {
	Name       string `json:"name"`
	EmployeeID string `json:"employee_id"`
}

type loginResponse struct {
	User  model.Identity `json:"user"`
	Token string         `json:"token"`
}

// Login exchanges a name and employee ID for an identity and bearer token.
func (c *Client) Login(ctx context.Context, name, employeeID string) (model.Identity, string, error) {
	var resp loginResponse
	err := c.do(ctx, OpLogin, http.MethodPost, "/login", loginRequest{Name: name, EmployeeID: employeeID}, &resp)
	if err != nil {
		return model.Identity{}, "", err
	}
	if resp.Token == "" {
		return model.Identity{}, "", &RequestFailedError{Operation: OpLogin, StatusCode: http.StatusOK, Err: errors.New("response carried no token")}
	}
	return resp.User, resp.Token, nil
}

// Washrooms fetches the full washroom snapshot.
func (c *Client) Washrooms(ctx context.Context) (model.Snapshot, error) {
	var snapshot model.Snapshot
	if err := c.do(ctx, OpFetch, http.MethodGet, "/washrooms", nil, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (c *Client) Occupy(ctx context.Context, stallID int64) error {
	return c.do(ctx, OpOccupy, http.MethodPost, fmt.Sprintf("/toilets/%d/occupy", stallID), nil, nil)
}

func (c *Client) Release(ctx context.Context, stallID int64) error {
	return c.do(ctx, OpRelease, http.MethodPost, fmt.Sprintf("/toilets/%d/release", stallID), nil, nil)
}

func (c *Client) JoinWaitlist(ctx context.Context, stallID int64) error {
	return c.do(ctx, OpJoinWaitlist, http.MethodPost, fmt.Sprintf("/toilets/%d/join-waitlist", stallID), nil, nil)
}

func (c *Client) Extend(ctx context.Context, stallID int64) error {
	return c.do(ctx, OpExtend, http.MethodPost, fmt.Sprintf("/toilets/%d/extend", stallID), nil, nil)
}

type registerTokenRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
}

// RegisterPushToken registers this device's push token with the backend.
func (c *Client) RegisterPushToken(ctx context.Context, token, deviceType string) error {
	return c.do(ctx, OpRegisterPush, http.MethodPost, "/notifications/register-token",
		registerTokenRequest{Token: token, DeviceType: deviceType}, nil)
}

// do performs one request and maps the outcome onto the client's error taxonomy.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return transportError(op, err)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}

	resp, err := c.roundTrip(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &RequestFailedError{Operation: op, StatusCode: resp.StatusCode}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestFailedError{Operation: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request payload: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// roundTrip sends req through the circuit breaker when one is configured.
// Only transport errors reach the breaker.
func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.http.Do(req)
	}
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.http.Do(req)
	})
	if err != nil {
		return nil, err
	}
	return res.(*http.Response), nil
}
