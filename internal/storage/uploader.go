package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"heri-science-api/internal/logger"

	"github.com/sirupsen/logrus"
)

// UploadResult describes where an image ended up
type UploadResult struct {
	Backend     string   `json:"backend"`
	Filename    string   `json:"filename"`
	URL         string   `json:"url"`
	Size        int64    `json:"size"`
	ContentType string   `json:"type"`
	Failures    []string `json:"failures,omitempty"`
}

// Uploader publishes image bytes and returns a URL for them
type Uploader interface {
	Name() string
	Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error)
}

// ErrNotConfigured is returned by backends whose credentials are missing
var ErrNotConfigured = errors.New("upload backend not configured")

// UploadChain tries each backend in order and falls back to local disk
type UploadChain struct {
	backends []Uploader
	local    *LocalUploader
	now      func() time.Time
}

// NewUploadChain creates a chain over backends with local as the last resort
func NewUploadChain(local *LocalUploader, backends ...Uploader) *UploadChain {
	return &UploadChain{
		backends: backends,
		local:    local,
		now:      time.Now,
	}
}

// Backends lists the configured backend names in try order
func (c *UploadChain) Backends() []string {
	names := make([]string, 0, len(c.backends)+1)
	for _, b := range c.backends {
		names = append(names, b.Name())
	}
	if c.local != nil {
		names = append(names, c.local.Name())
	}
	return names
}

// Upload stores data under a timestamp-prefixed name. The first backend to
// succeed wins; if all fail, the local uploader is used. An error is returned
// only when local storage fails too.
func (c *UploadChain) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	unique := fmt.Sprintf("%d_%s", c.now().Unix(), filename)
	var failures []string

	for _, backend := range c.backends {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := backend.Upload(ctx, data, unique)
		if err == nil {
			result.Failures = failures
			logger.WithFields(logrus.Fields{
				"backend":  backend.Name(),
				"filename": unique,
				"url":      result.URL,
			}).Info("Image uploaded")
			return result, nil
		}

		if !errors.Is(err, ErrNotConfigured) {
			logger.WithFields(logrus.Fields{
				"backend":  backend.Name(),
				"filename": unique,
				"error":    err.Error(),
			}).Warn("Upload backend failed")
		}
		failures = append(failures, fmt.Sprintf("%s: %v", backend.Name(), err))
	}

	if c.local == nil {
		return nil, fmt.Errorf("all upload backends failed: %v", failures)
	}

	result, err := c.local.Upload(ctx, data, unique)
	if err != nil {
		return nil, fmt.Errorf("local storage failed after %d backend failures: %w", len(failures), err)
	}
	result.Failures = failures
	return result, nil
}
