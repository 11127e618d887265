package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Sidecar describes a locally stored image. Sidecars live in a metadata
// directory kept outside the served upload directory.
type Sidecar struct {
	Filename    string    `yaml:"filename"`
	Size        int64     `yaml:"size"`
	ContentType string    `yaml:"content_type"`
	SHA1        string    `yaml:"sha1"`
	StoredAt    time.Time `yaml:"stored_at"`
}

// LocalUploader writes images under a directory served at urlPrefix
type LocalUploader struct {
	dir       string
	metaDir   string
	urlPrefix string
}

// NewLocalUploader creates a local uploader rooted at dir. Sidecars go to
// the sibling directory "<dir>-meta" unless WithMetaDir overrides it.
func NewLocalUploader(dir, urlPrefix string) *LocalUploader {
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &LocalUploader{dir: dir, metaDir: filepath.Clean(dir) + "-meta", urlPrefix: urlPrefix}
}

// WithMetaDir sets the sidecar directory. An empty dir keeps the default.
func (l *LocalUploader) WithMetaDir(dir string) *LocalUploader {
	if dir != "" {
		l.metaDir = dir
	}
	return l
}

func (l *LocalUploader) Name() string { return "local" }

// Dir is the directory images are written to
func (l *LocalUploader) Dir() string { return l.dir }

// MetaDir is the directory sidecars are written to
func (l *LocalUploader) MetaDir() string { return l.metaDir }

// Upload writes data and its YAML sidecar and returns the served path
func (l *LocalUploader) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		return nil, fmt.Errorf("invalid filename %q", filename)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	target := filepath.Join(l.dir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	sum := sha1.Sum(data)
	meta, err := yaml.Marshal(Sidecar{
		Filename:    name,
		Size:        int64(len(data)),
		ContentType: "image/jpeg",
		SHA1:        hex.EncodeToString(sum[:]),
		StoredAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode sidecar: %w", err)
	}
	if err := os.MkdirAll(l.metaDir, 0o755); err != nil {
		return nil, fmt.Errorf("create metadata dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.metaDir, name+".yaml"), meta, 0o644); err != nil {
		return nil, fmt.Errorf("write sidecar: %w", err)
	}

	return &UploadResult{
		Backend:     l.Name(),
		Filename:    name,
		URL:         path.Join(l.urlPrefix, name),
		Size:        int64(len(data)),
		ContentType: "image/jpeg",
	}, nil
}

// ReadSidecar loads the metadata stored for name
func (l *LocalUploader) ReadSidecar(name string) (*Sidecar, error) {
	data, err := os.ReadFile(filepath.Join(l.metaDir, filepath.Base(name)+".yaml"))
	if err != nil {
		return nil, err
	}
	var meta Sidecar
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode sidecar: %w", err)
	}
	return &meta, nil
}
