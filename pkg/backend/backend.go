package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://fluxy-agente.egnehl.easypanel.host"
	SalesPath      = "/api/v1/vendas"

	maxResponseSizeBytes = 1 << 20
)

type Config struct {
	BaseURL string        `envconfig:"ROTA_BACK_END" default:"https://fluxy-agente.egnehl.easypanel.host"`
	Timeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
}

// Task is the body accepted by the vendor backend.
type Task struct {
	NameTemplate  string `json:"name_template"`
	Dados         any    `json:"dados"`
	PhoneNumberID string `json:"phoneNumberId"`
}

// StatusError reports a non-2xx answer from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend http status=%d body=%s", e.Code, e.Body)
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

func MustNew(cfg Config, opts ...Option) *Client {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

// Send posts task to {baseURL}/api/v1/vendas. Any 2xx is a success.
func (c *Client) Send(ctx context.Context, task Task) error {
	if c == nil {
		return errors.New("nil backend client")
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal backend task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+SalesPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute backend request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read backend response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	return nil
}
