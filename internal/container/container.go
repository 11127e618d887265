package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"heri-science-api/internal/analyzer"
	"heri-science-api/internal/chat"
	"heri-science-api/internal/config"
	"heri-science-api/internal/enhancement"
	"heri-science-api/internal/factory"
	"heri-science-api/internal/logger"
	"heri-science-api/internal/observer"
	"heri-science-api/internal/ocr"
	"heri-science-api/internal/repository"
	"heri-science-api/internal/service"
	"heri-science-api/internal/storage"
	"heri-science-api/internal/strategy"
	"heri-science-api/internal/transport"
	"heri-science-api/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	imageAnalyzer   analyzer.ImageAnalyzer
	publisher       *observer.EventPublisher
	metrics         *observer.MetricsObserver
	amqp            *observer.AMQPObserver
	history         repository.HistoryRepository
	pool            *service.WorkerPool
	processing      *service.ProcessingService
	artifactService *service.ArtifactService
	handler         http.Handler
}

// NewContainer builds the dependency graph from cfg
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	// Events
	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	var amqpObserver *observer.AMQPObserver
	if cfg.AMQPURL != "" {
		o, err := observer.NewAMQPObserver(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.WithError(err).Warn("Event stream unavailable, continuing without it")
		} else {
			amqpObserver = o
			publisher.Subscribe(o)
		}
	}

	// Analysis and enhancement
	imageAnalyzer, err := components.AnalyzerFactory.CreateAnalyzer(factory.StandardAnalyzer)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}
	engine := enhancement.NewEngine(imageAnalyzer, enhancement.WithProfileCache(enhancement.NewProfileCache()))
	strategies := strategy.NewDefaultRegistry(engine)

	uploads, err := components.StorageFactory.CreateUploadChain()
	if err != nil {
		return nil, fmt.Errorf("failed to create upload chain: %w", err)
	}

	history, err := factory.HistoryRepository(ctx, cfg)
	if err != nil {
		if amqpObserver != nil {
			amqpObserver.Close()
		}
		return nil, err
	}

	thresholds := validation.DefaultQualityThresholds()
	thresholds.MaxBytes = cfg.MaxUploadBytes
	thresholds.MaxPixels = cfg.MaxImagePixels
	validator := validation.NewQualityValidatorWithThresholds(thresholds)

	pool := service.NewWorkerPool(cfg.ProcessingWorkers)
	processing := service.NewProcessingService(service.ProcessingDeps{
		Strategies: strategies,
		Pool:       pool,
		Uploader:   uploads,
		History:    history,
		Events:     publisher,
		Validator:  validator,
		Timeout:    cfg.ProcessingTimeout,
	})

	// Chat, Wikipedia and OCR
	fetcher := storage.NewHTTPImageFetcher()
	chatService := chat.NewService(fetcher, factory.ChatProviders(cfg)...)
	reader := ocr.NewReader()

	deps := service.ArtifactDeps{
		Analyzer:     imageAnalyzer,
		Images:       fetcher,
		Chat:         chatService,
		OCR:          reader,
		Events:       publisher,
		Validator:    validator,
		URLValidator: factory.ImageURLValidator(cfg),
	}
	// A nil *wikipedia.Client must not reach the interface field
	if wiki := factory.WikipediaClient(cfg); wiki != nil {
		deps.Wiki = wiki
	}
	artifactService := service.NewArtifactService(deps)

	capabilities := map[string]bool{
		"super_resolution":   true,
		"restoration":        true,
		"chat":               cfg.ChatConfigured(),
		"wikipedia":          cfg.WikipediaEnabled,
		"ocr":                reader.Available(),
		"persistent_history": cfg.DatabaseURL != "",
		"event_stream":       amqpObserver != nil,
	}
	logger.WithFields(logrus.Fields{
		"upload_backends": uploads.Backends(),
		"chat_providers":  chatService.Providers(),
		"capabilities":    capabilities,
	}).Info("Components initialized")

	handler := transport.NewHandler(transport.Dependencies{
		Processing:   processing,
		Artifacts:    artifactService,
		History:      history,
		Metrics:      metrics,
		AIReady:      cfg.ChatConfigured(),
		Capabilities: capabilities,
	}, transport.Options{
		MaxRequestBytes:    cfg.MaxUploadBytes,
		UploadDir:          cfg.UploadDir,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	return &Container{
		config:          cfg,
		imageAnalyzer:   imageAnalyzer,
		publisher:       publisher,
		metrics:         metrics,
		amqp:            amqpObserver,
		history:         history,
		pool:            pool,
		processing:      processing,
		artifactService: artifactService,
		handler:         handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close drains the worker pool and pending events, then releases the
// history store and event stream
func (c *Container) Close(ctx context.Context) error {
	c.pool.Close()

	done := make(chan struct{})
	go func() {
		c.publisher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("Timed out waiting for pending events")
	}

	var errs []error
	if err := c.history.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close history: %w", err))
	}
	if c.amqp != nil {
		if err := c.amqp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event stream: %w", err))
		}
	}
	return errors.Join(errs...)
}
