package factory

import (
	"context"
	"fmt"

	"heri-science-api/internal/analyzer"
	"heri-science-api/internal/chat"
	"heri-science-api/internal/config"
	"heri-science-api/internal/logger"
	"heri-science-api/internal/repository"
	"heri-science-api/internal/storage"
	"heri-science-api/internal/wikipedia"
	"heri-science-api/pkg/validation"

	"github.com/sirupsen/logrus"
)

// AnalyzerType represents different analyzer presets
type AnalyzerType string

const (
	// StandardAnalyzer uses the configured noise threshold
	StandardAnalyzer AnalyzerType = "standard"
	// SensitiveAnalyzer flags noise earlier
	SensitiveAnalyzer AnalyzerType = "sensitive"
	// TolerantAnalyzer flags noise later
	TolerantAnalyzer AnalyzerType = "tolerant"
)

// StorageType represents different upload backends
type StorageType string

const (
	// LocalStorage writes under the upload directory
	LocalStorage StorageType = "local"
	// ImgBBStorage posts to ImgBB
	ImgBBStorage StorageType = "imgbb"
	// CloudinaryStorage posts signed uploads to Cloudinary
	CloudinaryStorage StorageType = "cloudinary"
	// AzureStorage writes block blobs
	AzureStorage StorageType = "azure"
)

// uploadOrder is the order remote backends are tried in before local
var uploadOrder = []StorageType{AzureStorage, ImgBBStorage, CloudinaryStorage}

// AnalyzerFactory creates image analyzers
type AnalyzerFactory interface {
	CreateAnalyzer(analyzerType AnalyzerType) (analyzer.ImageAnalyzer, error)
}

// StorageFactory creates upload backends
type StorageFactory interface {
	CreateUploader(storageType StorageType) (storage.Uploader, error)
	CreateUploadChain() (*storage.UploadChain, error)
}

// analyzerFactory implements AnalyzerFactory
type analyzerFactory struct {
	noiseThreshold float64
	cache          *analyzer.AnalysisCache
}

// NewAnalyzerFactory creates a new analyzer factory. Every analyzer it
// creates shares one analysis cache.
func NewAnalyzerFactory(cfg *config.Config) AnalyzerFactory {
	return &analyzerFactory{
		noiseThreshold: cfg.NoiseThreshold,
		cache:          analyzer.NewAnalysisCache(),
	}
}

// CreateAnalyzer creates an analyzer based on the specified preset
func (f *analyzerFactory) CreateAnalyzer(analyzerType AnalyzerType) (analyzer.ImageAnalyzer, error) {
	var opts analyzer.AnalysisOptions
	switch analyzerType {
	case StandardAnalyzer:
		opts = analyzer.DefaultOptions()
		if f.noiseThreshold > 0 {
			opts = opts.WithNoiseThreshold(f.noiseThreshold)
		}
	case SensitiveAnalyzer:
		opts = analyzer.SensitiveOptions()
	case TolerantAnalyzer:
		opts = analyzer.TolerantOptions()
	default:
		return nil, fmt.Errorf("unsupported analyzer type: %s", analyzerType)
	}
	opts.Cache = f.cache
	return analyzer.NewImageAnalyzer(opts)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateUploader creates an upload backend based on the specified type.
// Backends without credentials are still returned; they report
// storage.ErrNotConfigured on upload.
func (f *storageFactory) CreateUploader(storageType StorageType) (storage.Uploader, error) {
	switch storageType {
	case LocalStorage:
		return f.local(), nil
	case ImgBBStorage:
		return storage.NewImgBBUploader(f.cfg.ImgBBAPIKey, ""), nil
	case CloudinaryStorage:
		return storage.NewCloudinaryUploader(f.cfg.CloudinaryCloudName, f.cfg.CloudinaryAPIKey, f.cfg.CloudinaryAPISecret, ""), nil
	case AzureStorage:
		u, err := storage.NewAzureBlobUploader(f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey, f.cfg.AzureStorageContainer)
		if err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// CreateUploadChain builds the chain of configured remote backends with the
// local directory as the last resort
func (f *storageFactory) CreateUploadChain() (*storage.UploadChain, error) {
	var backends []storage.Uploader
	for _, t := range uploadOrder {
		if !f.configured(t) {
			continue
		}
		u, err := f.CreateUploader(t)
		if err != nil {
			return nil, fmt.Errorf("create %s uploader: %w", t, err)
		}
		backends = append(backends, u)
	}
	return storage.NewUploadChain(f.local(), backends...), nil
}

func (f *storageFactory) local() *storage.LocalUploader {
	return storage.NewLocalUploader(f.cfg.UploadDir, "").WithMetaDir(f.cfg.UploadMetaDir)
}

func (f *storageFactory) configured(t StorageType) bool {
	switch t {
	case ImgBBStorage:
		return f.cfg.ImgBBAPIKey != ""
	case CloudinaryStorage:
		return f.cfg.CloudinaryCloudName != ""
	case AzureStorage:
		return f.cfg.AzureStorageAccount != "" && f.cfg.AzureStorageKey != ""
	}
	return false
}

// ChatProviders returns the configured providers, Gemini first
func ChatProviders(cfg *config.Config) []chat.Provider {
	var providers []chat.Provider
	if cfg.GeminiAPIKey != "" {
		providers = append(providers, chat.NewGeminiProvider(chat.ProviderConfig{
			APIKey:        cfg.GeminiAPIKey,
			Model:         cfg.GeminiModel,
			RatePerSecond: cfg.ChatRatePerSecond,
			Timeout:       cfg.ChatTimeout,
		}))
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, chat.NewOpenAIProvider(chat.ProviderConfig{
			APIKey:        cfg.OpenAIAPIKey,
			Model:         cfg.OpenAIModel,
			RatePerSecond: cfg.ChatRatePerSecond,
			Timeout:       cfg.ChatTimeout,
		}))
	}
	return providers
}

// ImageURLValidator checks client-supplied image URLs. An allowlist, when
// configured, replaces the open host policy; data URLs stay accepted.
func ImageURLValidator(cfg *config.Config) *validation.URLValidator {
	v := validation.NewURLValidator()
	if len(cfg.AllowedImageHosts) > 0 {
		v = validation.NewURLValidatorWithOptions([]string{"http", "https"}, cfg.AllowedImageHosts).AllowDataURLs(true)
	}
	return v.BlockPrivateHosts(cfg.BlockPrivateImageHosts)
}

// WikipediaClient returns nil when Wikipedia lookups are disabled
func WikipediaClient(cfg *config.Config) *wikipedia.Client {
	if !cfg.WikipediaEnabled {
		return nil
	}
	return wikipedia.NewClient(wikipedia.WithBaseURL(cfg.WikipediaBaseURL))
}

// HistoryRepository opens Postgres when DATABASE_URL is set and falls back
// to memory otherwise
func HistoryRepository(ctx context.Context, cfg *config.Config) (repository.HistoryRepository, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, keeping processing history in memory")
		return repository.NewMemoryHistoryRepository(0), nil
	}

	db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	repo := repository.NewPostgresHistoryRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	logger.WithFields(logrus.Fields{"backend": "postgres"}).Info("Processing history persisted")
	return repo, nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	AnalyzerFactory AnalyzerFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		AnalyzerFactory: NewAnalyzerFactory(cfg),
		StorageFactory:  NewStorageFactory(cfg),
	}
}
