package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/cohub/internal/config"
)

var (
	// ErrBackendUnavailable is returned when no fallback backend is configured.
	ErrBackendUnavailable = errors.New("assistant backend unavailable")
	// ErrBackendStatus is returned for a non-2xx function response.
	ErrBackendStatus = errors.New("assistant backend returned error status")
	// ErrBackendEmpty is returned when the backend answered without text.
	ErrBackendEmpty = errors.New("assistant backend returned empty response")
)

// Backend produces a free-form reply for a message no local rule matched.
type Backend interface {
	Generate(ctx context.Context, message string) (string, error)
	Name() string
}

// NewBackend builds the fallback backend cfg selects: the chat function
// when an endpoint is set, Gemini when an API key is set, else offline.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.AssistantMode() {
	case "function":
		return NewFunctionBackend(cfg.Assistant.Endpoint, cfg.Assistant.Timeout), nil
	case "gemini":
		return NewGenAIBackend(ctx, cfg.Assistant.GeminiAPIKey, cfg.Assistant.GeminiModel)
	default:
		return OfflineBackend{}, nil
	}
}

// FunctionBackend calls a serverless chat function:
// POST {"message": ...} -> {"response": ...}.
type FunctionBackend struct {
	endpoint string
	client   *http.Client
}

// NewFunctionBackend creates a backend for endpoint. A zero timeout leaves
// the transport default in place.
func NewFunctionBackend(endpoint string, timeout time.Duration) *FunctionBackend {
	return &FunctionBackend{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type functionRequest struct {
	Message string `json:"message"`
}

type functionResponse struct {
	Response *string `json:"response"`
}

// Name implements Backend.
func (b *FunctionBackend) Name() string { return "function" }

// Generate implements Backend.
func (b *FunctionBackend) Generate(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(functionRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call chat function: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: %d", ErrBackendStatus, resp.StatusCode)
	}

	var out functionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Response == nil || strings.TrimSpace(*out.Response) == "" {
		return "", ErrBackendEmpty
	}
	return *out.Response, nil
}

// OfflineBackend always fails; every unmatched message gets the apology.
type OfflineBackend struct{}

// Name implements Backend.
func (OfflineBackend) Name() string { return "offline" }

// Generate implements Backend.
func (OfflineBackend) Generate(context.Context, string) (string, error) {
	return "", ErrBackendUnavailable
}
