package factory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"heri-science-api/internal/config"
	"heri-science-api/internal/repository"
	"heri-science-api/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		NoiseThreshold:        1800,
		GeminiModel:           "gemini-1.5-flash",
		OpenAIModel:           "gpt-4o-mini",
		ChatTimeout:           time.Second,
		AzureStorageContainer: "processed",
		UploadDir:             t.TempDir(),
		WikipediaBaseURL:      "https://en.wikipedia.org/w/api.php",
	}
}

func TestAnalyzerFactory(t *testing.T) {
	f := NewAnalyzerFactory(testConfig(t))

	for _, typ := range []AnalyzerType{StandardAnalyzer, SensitiveAnalyzer, TolerantAnalyzer} {
		a, err := f.CreateAnalyzer(typ)
		require.NoError(t, err, typ)
		assert.NotNil(t, a)
	}

	_, err := f.CreateAnalyzer("quantum")
	assert.Error(t, err)
}

func TestStorageFactory_LocalOnly(t *testing.T) {
	f := NewStorageFactory(testConfig(t))

	chain, err := f.CreateUploadChain()
	require.NoError(t, err)
	assert.Equal(t, []string{"local"}, chain.Backends())
}

func TestStorageFactory_LocalMetaDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.UploadMetaDir = filepath.Join(t.TempDir(), "meta")

	u, err := NewStorageFactory(cfg).CreateUploader(LocalStorage)
	require.NoError(t, err)
	local, ok := u.(*storage.LocalUploader)
	require.True(t, ok)
	assert.Equal(t, cfg.UploadDir, local.Dir())
	assert.Equal(t, cfg.UploadMetaDir, local.MetaDir())
}

func TestStorageFactory_ConfiguredBackends(t *testing.T) {
	cfg := testConfig(t)
	cfg.ImgBBAPIKey = "imgbb-key"
	cfg.CloudinaryCloudName = "heri"
	cfg.CloudinaryAPIKey = "key"
	cfg.CloudinaryAPISecret = "secret"
	f := NewStorageFactory(cfg)

	chain, err := f.CreateUploadChain()
	require.NoError(t, err)
	assert.Equal(t, []string{"imgbb", "cloudinary", "local"}, chain.Backends())

	u, err := f.CreateUploader(AzureStorage)
	require.NoError(t, err)
	assert.Equal(t, "azure", u.Name())

	_, err = f.CreateUploader("ftp")
	assert.Error(t, err)
}

func TestChatProviders(t *testing.T) {
	cfg := testConfig(t)
	assert.Empty(t, ChatProviders(cfg))

	cfg.GeminiAPIKey = "g"
	cfg.OpenAIAPIKey = "o"
	providers := ChatProviders(cfg)
	require.Len(t, providers, 2)
	assert.Equal(t, "gemini", providers[0].Name())
	assert.Equal(t, "openai", providers[1].Name())
}

func TestWikipediaClient(t *testing.T) {
	cfg := testConfig(t)
	assert.Nil(t, WikipediaClient(cfg))

	cfg.WikipediaEnabled = true
	assert.NotNil(t, WikipediaClient(cfg))
}

func TestHistoryRepository_Memory(t *testing.T) {
	repo, err := HistoryRepository(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer repo.Close()

	_, ok := repo.(*repository.MemoryHistoryRepository)
	assert.True(t, ok)
}

func TestImageURLValidator(t *testing.T) {
	cfg := testConfig(t)
	cfg.BlockPrivateImageHosts = true

	v := ImageURLValidator(cfg)
	assert.NoError(t, v.ValidateImageURL("https://upload.wikimedia.org/vase.jpg"))
	assert.NoError(t, v.ValidateImageURL("data:image/png;base64,AAAA"))
	assert.Error(t, v.ValidateImageURL("http://169.254.169.254/latest/meta-data"))
	assert.Error(t, v.ValidateImageURL("http://127.0.0.1:5000/uploads/x.jpg"))

	cfg.AllowedImageHosts = []string{"upload.wikimedia.org"}
	v = ImageURLValidator(cfg)
	assert.NoError(t, v.ValidateImageURL("https://upload.wikimedia.org/vase.jpg"))
	assert.NoError(t, v.ValidateImageURL("data:image/png;base64,AAAA"))
	assert.Error(t, v.ValidateImageURL("https://example.com/vase.jpg"))

	cfg.AllowedImageHosts = nil
	cfg.BlockPrivateImageHosts = false
	assert.NoError(t, ImageURLValidator(cfg).ValidateImageURL("http://localhost:8080/a.jpg"))
}
