package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"heri-science-api/internal/enhancement"
	apperrors "heri-science-api/internal/errors"
	"heri-science-api/internal/logger"
	"heri-science-api/internal/observer"
	"heri-science-api/internal/repository"
	"heri-science-api/internal/storage"
	"heri-science-api/internal/strategy"
	"heri-science-api/pkg/models"
	"heri-science-api/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Defaults applied by the process-image endpoint
const (
	DefaultProcessType = strategy.SuperResolution
	DefaultIntensity   = 0.75
	DefaultMode        = "auto"
)

// inlineURLMarker is stored in history in place of a full data URL
const inlineURLMarker = "data:inline"

// ProcessRequest is one process-image call
type ProcessRequest struct {
	Image       []byte
	Filename    string
	ProcessType string
	Intensity   float64
	Mode        string
}

// StrategyLookup resolves a process type; *strategy.Registry satisfies it
type StrategyLookup interface {
	Get(name string) (strategy.ProcessStrategy, error)
}

// ImageUploader publishes processed bytes; *storage.UploadChain satisfies it
type ImageUploader interface {
	Upload(ctx context.Context, data []byte, filename string) (*storage.UploadResult, error)
}

// ProcessingService runs enhancement requests end to end
type ProcessingService struct {
	strategies StrategyLookup
	pool       *WorkerPool
	uploader   ImageUploader
	history    repository.HistoryRepository
	events     observer.Subject
	validator  *validation.QualityValidator
	timeout    time.Duration
	now        func() time.Time
}

// ProcessingDeps are the collaborators of a ProcessingService
type ProcessingDeps struct {
	Strategies StrategyLookup
	Pool       *WorkerPool
	Uploader   ImageUploader
	History    repository.HistoryRepository
	Events     observer.Subject
	Validator  *validation.QualityValidator
	Timeout    time.Duration
}

// NewProcessingService creates a processing service. The pool is started here.
func NewProcessingService(deps ProcessingDeps) *ProcessingService {
	if deps.Validator == nil {
		deps.Validator = validation.NewQualityValidator()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 90 * time.Second
	}
	if deps.Pool == nil {
		deps.Pool = NewWorkerPool(0)
	}
	deps.Pool.Start()

	return &ProcessingService{
		strategies: deps.Strategies,
		pool:       deps.Pool,
		uploader:   deps.Uploader,
		history:    deps.History,
		events:     deps.Events,
		validator:  deps.Validator,
		timeout:    deps.Timeout,
		now:        time.Now,
	}
}

// PoolStats reports worker pool counters
func (s *ProcessingService) PoolStats() PoolStats {
	return s.pool.GetStats()
}

// Process validates, enhances, uploads and records one image
func (s *ProcessingService) Process(ctx context.Context, req ProcessRequest) (*models.ProcessResponse, error) {
	start := s.now()
	requestID := RequestID(ctx)
	ctx = WithRequestID(ctx, requestID)

	strat, err := s.strategies.Get(req.ProcessType)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid process type", err)
	}
	if req.Intensity < 0 || req.Intensity > 1 {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("Intensity must be between 0 and 1, got %g", req.Intensity), nil)
	}
	if _, err := enhancement.ResolveMode(req.Mode, req.Intensity); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), err)
	}
	if _, err := s.validator.ValidateUpload(req.Image); err != nil {
		return nil, err
	}

	img, _, err := decodeImage(req.Image)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, observer.ProcessingEvent{
		Type:        observer.ProcessingStarted,
		RequestID:   requestID,
		ProcessType: req.ProcessType,
		Mode:        req.Mode,
	})

	result, cause, err := s.run(ctx, strat, img, req)
	if err != nil {
		s.publish(ctx, observer.ProcessingEvent{
			Type:        observer.ProcessingFailed,
			RequestID:   requestID,
			ProcessType: req.ProcessType,
			Mode:        req.Mode,
			Duration:    s.now().Sub(start),
			Error:       err.Error(),
		})
		return nil, err
	}
	degraded := cause != nil
	if degraded {
		result.Metadata.ProcessingTime = enhancement.FormatDuration(s.now().Sub(start))
	}

	encoded, err := encodeJPEG(result.Image)
	if err != nil {
		return nil, err
	}

	processedURL, backend := s.upload(ctx, requestID, req.ProcessType, encoded)

	b := img.Bounds()
	originalSize := enhancement.FormatSize(b.Dx(), b.Dy())
	pb := result.Image.Bounds()
	processedSize := enhancement.FormatSize(pb.Dx(), pb.Dy())
	elapsed := s.now().Sub(start)

	s.record(ctx, &models.ProcessingRecord{
		ID:             requestID,
		ProcessType:    req.ProcessType,
		Mode:           result.Mode.String(),
		Intensity:      req.Intensity,
		OriginalSize:   originalSize,
		ProcessedSize:  processedSize,
		ProcessedURL:   historyURL(processedURL),
		UploadBackend:  backend,
		Degraded:       degraded,
		ProcessingTime: elapsed.Seconds(),
		CreatedAt:      start.UTC(),
	})

	final := observer.ProcessingEvent{
		Type:        observer.ProcessingCompleted,
		RequestID:   requestID,
		ProcessType: req.ProcessType,
		Mode:        result.Mode.String(),
		Duration:    elapsed,
		Metadata: map[string]interface{}{
			"upload_backend": backend,
			"processed_size": processedSize,
		},
	}
	if degraded {
		final.Type = observer.ProcessingDegraded
		final.Error = cause.Error()
	}
	s.publish(ctx, final)

	return &models.ProcessResponse{
		Status:            "success",
		RequestID:         requestID,
		ProcessedImageURL: processedURL,
		Message:           completionMessage(req.ProcessType, result.Metadata, degraded),
		Metadata:          result.Metadata,
		OriginalSize:      originalSize,
		ProcessedSize:     processedSize,
		UploadBackend:     backend,
		Degraded:          degraded,
	}, nil
}

// run executes the strategy on the pool and falls back when the pipeline
// fails. A non-nil cause means the fallback produced the result.
func (s *ProcessingService) run(ctx context.Context, strat strategy.ProcessStrategy, img image.Image, req ProcessRequest) (result *enhancement.Result, cause error, err error) {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var processed *enhancement.Result
	err = s.pool.Run(pctx, func() error {
		r, perr := strat.Process(pctx, img, req.Intensity, req.Mode)
		processed = r
		return perr
	})
	if err == nil {
		return processed, nil, nil
	}

	var modeErr *enhancement.InvalidModeError
	switch {
	case errors.Is(err, ErrPoolClosed):
		return nil, nil, apperrors.NewUnavailableError("Processing is shutting down", err)
	case errors.As(err, &modeErr):
		return nil, nil, apperrors.NewValidationError(modeErr.Error(), err)
	case ctx.Err() != nil:
		return nil, nil, apperrors.NewTimeoutError("Request cancelled during processing", ctx.Err())
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"request_id":   RequestID(ctx),
		"process_type": req.ProcessType,
		"mode":         req.Mode,
		"intensity":    req.Intensity,
	}).Warn("Enhancement pipeline failed, serving fallback")

	fallback, ferr := strat.Fallback(img)
	if ferr != nil {
		return nil, nil, apperrors.NewProcessingError("Image processing failed", errors.Join(err, ferr))
	}
	return fallback, err, nil
}

// upload publishes the JPEG and returns its URL and backend. When even local
// disk fails the image is returned inline as a data URL.
func (s *ProcessingService) upload(ctx context.Context, requestID, processType string, encoded []byte) (string, string) {
	filename := processedFilename(processType, requestID, s.now())

	var res *storage.UploadResult
	var err error
	if s.uploader != nil {
		res, err = s.uploader.Upload(ctx, encoded, filename)
	} else {
		err = errors.New("no uploader configured")
	}

	if err != nil || res == nil {
		if err == nil {
			err = errors.New("uploader returned no result")
		}
		logger.WithError(err).WithField("request_id", requestID).Warn("Upload failed, returning inline image")
		s.publish(ctx, observer.ProcessingEvent{
			Type:        observer.UploadFailed,
			RequestID:   requestID,
			ProcessType: processType,
			Error:       err.Error(),
		})
		return storage.EncodeDataURL(encoded), "inline"
	}

	if len(res.Failures) > 0 {
		s.publish(ctx, observer.ProcessingEvent{
			Type:        observer.UploadFailed,
			RequestID:   requestID,
			ProcessType: processType,
			Metadata:    map[string]interface{}{"failures": res.Failures, "backend": res.Backend},
		})
	}
	return res.URL, res.Backend
}

func (s *ProcessingService) record(ctx context.Context, rec *models.ProcessingRecord) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(ctx, rec); err != nil {
		logger.WithError(err).WithField("request_id", rec.ID).Warn("Failed to record processing history")
	}
}

func (s *ProcessingService) publish(ctx context.Context, event observer.ProcessingEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}

func historyURL(u string) string {
	if validation.IsDataURL(u) {
		return inlineURLMarker
	}
	return u
}

func completionMessage(processType string, meta models.EnhancementMetadata, degraded bool) string {
	if degraded {
		if processType == strategy.Restoration {
			return "Image restored successfully"
		}
		return "Image enhanced with super-resolution"
	}

	label := "Super-Resolution"
	if processType == strategy.Restoration {
		label = "Restoration"
	}
	mode := meta.ProcessingMode
	if mode == "" {
		mode = "AUTO"
	}
	return fmt.Sprintf("%s Complete! Mode: %s | Time: %s", label, mode, meta.ProcessingTime)
}
