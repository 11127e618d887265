package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	name  string
	err   error
	calls int
	got   string
}

func (f *fakeUploader) Name() string { return f.name }

func (f *fakeUploader) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	f.calls++
	f.got = filename
	if f.err != nil {
		return nil, f.err
	}
	return &UploadResult{Backend: f.name, Filename: filename, URL: "https://cdn.example/" + filename, Size: int64(len(data))}, nil
}

func fixedChain(local *LocalUploader, backends ...Uploader) *UploadChain {
	c := NewUploadChain(local, backends...)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestUploadChain_FirstSuccessWins(t *testing.T) {
	first := &fakeUploader{name: "first", err: errors.New("down")}
	second := &fakeUploader{name: "second"}
	third := &fakeUploader{name: "third"}

	chain := fixedChain(NewLocalUploader(t.TempDir(), ""), first, second, third)
	result, err := chain.Upload(context.Background(), []byte("jpeg"), "processed.jpg")
	require.NoError(t, err)

	assert.Equal(t, "second", result.Backend)
	assert.Equal(t, "1700000000_processed.jpg", second.got)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, third.calls)
	assert.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "first: down")
}

func TestUploadChain_FallsBackToLocal(t *testing.T) {
	dir := t.TempDir()
	chain := fixedChain(NewLocalUploader(dir, "/uploads"),
		&fakeUploader{name: "a", err: ErrNotConfigured},
		&fakeUploader{name: "b", err: errors.New("boom")},
	)

	result, err := chain.Upload(context.Background(), []byte("jpeg-bytes"), "out.jpg")
	require.NoError(t, err)

	assert.Equal(t, "local", result.Backend)
	assert.Equal(t, "/uploads/1700000000_out.jpg", result.URL)
	assert.Len(t, result.Failures, 2)

	data, err := os.ReadFile(filepath.Join(dir, "1700000000_out.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestUploadChain_LocalFailureIsAnError(t *testing.T) {
	// A regular file where the directory should be makes MkdirAll fail
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	chain := fixedChain(NewLocalUploader(filepath.Join(blocker, "uploads"), ""),
		&fakeUploader{name: "a", err: errors.New("down")})
	_, err := chain.Upload(context.Background(), []byte("jpeg"), "out.jpg")
	assert.Error(t, err)
}

func TestUploadChain_Backends(t *testing.T) {
	chain := NewUploadChain(NewLocalUploader(t.TempDir(), ""), &fakeUploader{name: "azure"}, &fakeUploader{name: "imgbb"})
	assert.Equal(t, []string{"azure", "imgbb", "local"}, chain.Backends())
}

func TestLocalUploader_Sidecar(t *testing.T) {
	root := t.TempDir()
	local := NewLocalUploader(filepath.Join(root, "uploads"), "")
	assert.Equal(t, filepath.Join(root, "uploads-meta"), local.MetaDir())

	result, err := local.Upload(context.Background(), []byte("abc"), "../../etc/evil.jpg")
	require.NoError(t, err)

	assert.Equal(t, "evil.jpg", result.Filename)
	assert.Equal(t, "/uploads/evil.jpg", result.URL)

	entries, err := os.ReadDir(local.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the image is served")
	assert.Equal(t, "evil.jpg", entries[0].Name())
	assert.FileExists(t, filepath.Join(root, "uploads-meta", "evil.jpg.yaml"))

	meta, err := local.ReadSidecar("evil.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(3), meta.Size)
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", meta.SHA1)
	assert.Equal(t, "image/jpeg", meta.ContentType)
}

func TestLocalUploader_MetaDirOverride(t *testing.T) {
	metaDir := filepath.Join(t.TempDir(), "meta")
	local := NewLocalUploader(t.TempDir(), "").WithMetaDir(metaDir)

	_, err := local.Upload(context.Background(), []byte("abc"), "a.jpg")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(metaDir, "a.jpg.yaml"))
	assert.NoFileExists(t, filepath.Join(local.Dir(), "a.jpg.yaml"))
}

func TestImgBBUploader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "k", r.PostForm.Get("key"))
		assert.Equal(t, "1700000000_out", r.PostForm.Get("name"))
		assert.Equal(t, "YWJj", r.PostForm.Get("image"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"title": "1700000000_out", "url": "https://i.ibb.co/x.jpg", "size": 3},
		})
	}))
	defer server.Close()

	result, err := NewImgBBUploader("k", server.URL).Upload(context.Background(), []byte("abc"), "1700000000_out.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/x.jpg", result.URL)
	assert.Equal(t, int64(3), result.Size)
	assert.Equal(t, "imgbb", result.Backend)
}

func TestImgBBUploader_Failures(t *testing.T) {
	_, err := NewImgBBUploader("", "").Upload(context.Background(), []byte("abc"), "a.jpg")
	assert.ErrorIs(t, err, ErrNotConfigured)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":{"message":"Invalid API v1 key."}}`))
	}))
	defer server.Close()

	_, err = NewImgBBUploader("bad", server.URL).Upload(context.Background(), []byte("abc"), "a.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API v1 key.")
}

func TestSignParams(t *testing.T) {
	sig := SignParams(map[string]string{
		"timestamp": "1700000000",
		"public_id": "processed_1700000000_img",
		"api_key":   "key123",
	}, "secret")
	assert.Equal(t, "864148652f60295ebaafa20a007a26a32b0c9d57", sig)
}

func TestCloudinaryUploader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "key123", r.FormValue("api_key"))
		assert.Equal(t, "864148652f60295ebaafa20a007a26a32b0c9d57", r.FormValue("signature"))

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		file.Close()

		w.Write([]byte(`{"public_id":"processed_1700000000_img","secure_url":"https://res.cloudinary.com/demo/x.jpg","bytes":3}`))
	}))
	defer server.Close()

	up := NewCloudinaryUploader("demo", "key123", "secret", server.URL)
	up.now = func() time.Time { return time.Unix(1700000000, 0) }

	result, err := up.Upload(context.Background(), []byte("abc"), "img.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/x.jpg", result.URL)
	assert.Equal(t, "processed_1700000000_img", result.Filename)
}

func TestCloudinaryUploader_NotConfigured(t *testing.T) {
	_, err := NewCloudinaryUploader("", "", "", "").Upload(context.Background(), []byte("abc"), "img.jpg")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAzureBlobUploader_NotConfigured(t *testing.T) {
	up, err := NewAzureBlobUploader("", "", "images")
	require.NoError(t, err)
	assert.False(t, up.Configured())

	_, err = up.Upload(context.Background(), []byte("abc"), "img.jpg")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
