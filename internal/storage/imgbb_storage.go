package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultImgBBEndpoint = "https://api.imgbb.com/1/upload"

// ImgBBUploader posts base64 images to the ImgBB API
type ImgBBUploader struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewImgBBUploader creates an ImgBB uploader; endpoint may be empty
func NewImgBBUploader(apiKey, endpoint string) *ImgBBUploader {
	if endpoint == "" {
		endpoint = defaultImgBBEndpoint
	}
	return &ImgBBUploader{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (u *ImgBBUploader) Name() string { return "imgbb" }

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Title string      `json:"title"`
		URL   string      `json:"url"`
		Size  json.Number `json:"size"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (u *ImgBBUploader) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	if u.apiKey == "" {
		return nil, ErrNotConfigured
	}

	form := url.Values{}
	form.Set("key", u.apiKey)
	form.Set("image", base64.StdEncoding.EncodeToString(data))
	form.Set("name", strings.SplitN(filename, ".", 2)[0])

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imgbb request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("imgbb response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imgbb failed: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed imgbbResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("imgbb response: %w", err)
	}
	if !parsed.Success {
		msg := parsed.Error.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, fmt.Errorf("imgbb error: %s", msg)
	}

	result := &UploadResult{
		Backend:     u.Name(),
		Filename:    filename,
		URL:         parsed.Data.URL,
		Size:        int64(len(data)),
		ContentType: "image/jpeg",
	}
	if parsed.Data.Title != "" {
		result.Filename = parsed.Data.Title
	}
	if n, err := parsed.Data.Size.Int64(); err == nil {
		result.Size = n
	}
	return result, nil
}
