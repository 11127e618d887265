package storage

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultCloudinaryBase = "https://api.cloudinary.com/v1_1"

// CloudinaryUploader performs signed uploads to Cloudinary
type CloudinaryUploader struct {
	cloudName string
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
	now       func() time.Time
}

// NewCloudinaryUploader creates a Cloudinary uploader; baseURL may be empty
func NewCloudinaryUploader(cloudName, apiKey, apiSecret, baseURL string) *CloudinaryUploader {
	if baseURL == "" {
		baseURL = defaultCloudinaryBase
	}
	return &CloudinaryUploader{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

func (c *CloudinaryUploader) Name() string { return "cloudinary" }

// SignParams returns the hex SHA-1 of the sorted k=v pairs joined by '&'
// followed by the secret
func SignParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

type cloudinaryResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Bytes     int64  `json:"bytes"`
}

func (c *CloudinaryUploader) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	if c.cloudName == "" || c.apiKey == "" || c.apiSecret == "" {
		return nil, ErrNotConfigured
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	params := map[string]string{
		"public_id": fmt.Sprintf("processed_%s_%s", timestamp, strings.SplitN(filename, ".", 2)[0]),
		"timestamp": timestamp,
		"api_key":   c.apiKey,
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range params {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := mw.WriteField("signature", SignParams(params, c.apiSecret)); err != nil {
		return nil, err
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("cloudinary response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cloudinary failed: %d %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed cloudinaryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("cloudinary response: %w", err)
	}
	if parsed.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary response missing secure_url")
	}

	result := &UploadResult{
		Backend:     c.Name(),
		Filename:    filename,
		URL:         parsed.SecureURL,
		Size:        int64(len(data)),
		ContentType: "image/jpeg",
	}
	if parsed.PublicID != "" {
		result.Filename = parsed.PublicID
	}
	if parsed.Bytes > 0 {
		result.Size = parsed.Bytes
	}
	return result, nil
}
