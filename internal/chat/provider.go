package chat

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrEmptyReply is returned when a provider answers with no text
var ErrEmptyReply = errors.New("provider returned an empty reply")

// Request is a single prompt, optionally with one JPEG image attached
type Request struct {
	Prompt    string
	ImageJPEG []byte
}

// Provider generates a reply for a prompt
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// ProviderConfig holds the settings shared by the REST providers
type ProviderConfig struct {
	APIKey        string
	Model         string
	BaseURL       string
	RatePerSecond float64
	Timeout       time.Duration
}

func (c ProviderConfig) limiter() *rate.Limiter {
	if c.RatePerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(c.RatePerSecond), 1)
}

func (c ProviderConfig) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
