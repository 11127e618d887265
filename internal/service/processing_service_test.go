package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"heri-science-api/internal/analyzer"
	"heri-science-api/internal/enhancement"
	apperrors "heri-science-api/internal/errors"
	"heri-science-api/internal/observer"
	"heri-science-api/internal/repository"
	"heri-science-api/internal/storage"
	"heri-science-api/internal/strategy"
	"heri-science-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu        sync.Mutex
	filenames []string
	result    *storage.UploadResult
	err       error
}

func (f *fakeUploader) Upload(ctx context.Context, data []byte, filename string) (*storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filenames = append(f.filenames, filename)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &storage.UploadResult{Backend: "fake", Filename: filename, URL: "https://cdn.example.com/" + filename, Size: int64(len(data))}, nil
}

// brokenStrategy always fails its pipeline and serves the real fallback
type brokenStrategy struct {
	name string
}

func (b brokenStrategy) Process(ctx context.Context, img image.Image, intensity float64, mode string) (*enhancement.Result, error) {
	return nil, &enhancement.ProcessingError{Stage: enhancement.StageSharpen, Err: errors.New("kernel exploded")}
}

func (b brokenStrategy) Fallback(img image.Image) (*enhancement.Result, error) {
	if b.name == strategy.Restoration {
		return enhancement.FallbackSharpen(img)
	}
	return enhancement.FallbackUpscale(img)
}

func (b brokenStrategy) GetStrategyName() string { return b.name }

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type processingFixture struct {
	svc       *ProcessingService
	uploader  *fakeUploader
	history   *repository.MemoryHistoryRepository
	publisher *observer.EventPublisher
	metrics   *observer.MetricsObserver
}

func newProcessingFixture(t *testing.T, strategies StrategyLookup) *processingFixture {
	t.Helper()

	if strategies == nil {
		a, err := analyzer.NewImageAnalyzer(analyzer.DefaultOptions())
		require.NoError(t, err)
		strategies = strategy.NewDefaultRegistry(enhancement.NewEngine(a))
	}

	f := &processingFixture{
		uploader:  &fakeUploader{},
		history:   repository.NewMemoryHistoryRepository(10),
		publisher: observer.NewEventPublisher(),
		metrics:   observer.NewMetricsObserver(),
	}
	f.publisher.Subscribe(f.metrics)

	pool := NewWorkerPool(2)
	t.Cleanup(pool.Close)

	f.svc = NewProcessingService(ProcessingDeps{
		Strategies: strategies,
		Pool:       pool,
		Uploader:   f.uploader,
		History:    f.history,
		Events:     f.publisher,
		Timeout:    10 * time.Second,
	})
	f.svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return f
}

func TestProcess_SuperResolution(t *testing.T) {
	f := newProcessingFixture(t, nil)
	ctx := WithRequestID(context.Background(), "req-1")

	resp, err := f.svc.Process(ctx, ProcessRequest{
		Image:       pngBytes(t, 8, 6, color.NRGBA{120, 110, 100, 255}),
		ProcessType: strategy.SuperResolution,
		Intensity:   0.1,
		Mode:        "fast",
	})
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "8x6", resp.OriginalSize)
	assert.Equal(t, "16x12", resp.ProcessedSize)
	assert.Equal(t, "fake", resp.UploadBackend)
	assert.False(t, resp.Degraded)
	assert.True(t, strings.HasPrefix(resp.Message, "Super-Resolution Complete! Mode: FAST | Time: "), resp.Message)
	assert.Equal(t, "https://cdn.example.com/processed_super-resolution_1700000000_req-1.jpg", resp.ProcessedImageURL)
	assert.Equal(t, []string{"processed_super-resolution_1700000000_req-1.jpg"}, f.uploader.filenames)

	rec, err := f.history.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "fast", rec.Mode)
	assert.Equal(t, resp.ProcessedImageURL, rec.ProcessedURL)
	assert.False(t, rec.Degraded)

	f.publisher.Wait()
	m := f.metrics.GetMetrics()
	assert.Equal(t, int64(1), m.Started)
	assert.Equal(t, int64(1), m.Completed)
	assert.Equal(t, int64(0), m.Degraded)
	assert.Equal(t, int64(1), m.ByProcessType[strategy.SuperResolution])
}

func TestProcess_Restoration(t *testing.T) {
	f := newProcessingFixture(t, nil)

	resp, err := f.svc.Process(context.Background(), ProcessRequest{
		Image:       pngBytes(t, 10, 10, color.NRGBA{128, 128, 128, 255}),
		ProcessType: strategy.Restoration,
		Intensity:   0.5,
		Mode:        "auto",
	})
	require.NoError(t, err)

	assert.Equal(t, "10x10", resp.ProcessedSize)
	assert.True(t, strings.HasPrefix(resp.Message, "Restoration Complete! Mode: BALANCED"), resp.Message)
	assert.NotEmpty(t, resp.RequestID)
}

func TestProcess_ValidationErrors(t *testing.T) {
	f := newProcessingFixture(t, nil)
	valid := pngBytes(t, 4, 4, color.White)

	tests := []struct {
		name    string
		req     ProcessRequest
		message string
	}{
		{"unknown process type", ProcessRequest{Image: valid, ProcessType: "colorize", Intensity: 0.5}, "Invalid process type"},
		{"intensity too high", ProcessRequest{Image: valid, ProcessType: strategy.SuperResolution, Intensity: 1.5}, ""},
		{"negative intensity", ProcessRequest{Image: valid, ProcessType: strategy.SuperResolution, Intensity: -0.1}, ""},
		{"unknown mode", ProcessRequest{Image: valid, ProcessType: strategy.SuperResolution, Intensity: 0.5, Mode: "turbo"}, ""},
		{"not an image", ProcessRequest{Image: []byte("plain text"), ProcessType: strategy.SuperResolution, Intensity: 0.5}, ""},
		{"empty upload", ProcessRequest{ProcessType: strategy.Restoration, Intensity: 0.5}, "No image provided"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Process(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), err.Error())
			if tt.message != "" {
				var appErr *apperrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.message, appErr.Message)
			}
		})
	}

	assert.Empty(t, f.uploader.filenames)
}

func TestProcess_FallsBackWhenPipelineFails(t *testing.T) {
	f := newProcessingFixture(t, strategy.NewRegistry(
		brokenStrategy{name: strategy.SuperResolution},
		brokenStrategy{name: strategy.Restoration},
	))
	ctx := WithRequestID(context.Background(), "req-fallback")

	resp, err := f.svc.Process(ctx, ProcessRequest{
		Image:       pngBytes(t, 5, 5, color.Black),
		ProcessType: strategy.SuperResolution,
		Intensity:   0.9,
		Mode:        "ultra",
	})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	assert.Equal(t, "Image enhanced with super-resolution", resp.Message)
	assert.Equal(t, "10x10", resp.ProcessedSize)
	assert.Equal(t, "Lanczos upscaling", resp.Metadata.Technique)
	assert.Equal(t, "FAST", resp.Metadata.ProcessingMode)
	assert.NotEmpty(t, resp.Metadata.ProcessingTime)

	rec, err := f.history.Get(ctx, "req-fallback")
	require.NoError(t, err)
	assert.True(t, rec.Degraded)

	resp, err = f.svc.Process(ctx, ProcessRequest{
		Image:       pngBytes(t, 5, 5, color.Black),
		ProcessType: strategy.Restoration,
		Intensity:   0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, "Image restored successfully", resp.Message)
	assert.Equal(t, "5x5", resp.ProcessedSize)

	f.publisher.Wait()
	m := f.metrics.GetMetrics()
	assert.Equal(t, int64(2), m.Degraded)
	assert.Equal(t, int64(0), m.Completed)
}

func TestProcess_UploadFailureReturnsDataURL(t *testing.T) {
	f := newProcessingFixture(t, nil)
	f.uploader.err = errors.New("disk full")
	ctx := WithRequestID(context.Background(), "req-inline")

	resp, err := f.svc.Process(ctx, ProcessRequest{
		Image:       pngBytes(t, 4, 4, color.White),
		ProcessType: strategy.SuperResolution,
		Intensity:   0.2,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.ProcessedImageURL, "data:image/jpeg;base64,"))
	assert.Equal(t, "inline", resp.UploadBackend)

	rec, err := f.history.Get(ctx, "req-inline")
	require.NoError(t, err)
	assert.Equal(t, inlineURLMarker, rec.ProcessedURL)

	f.publisher.Wait()
	assert.Equal(t, int64(1), f.metrics.GetMetrics().UploadFailures)
}

func TestProcess_LocalFallbackIsReported(t *testing.T) {
	f := newProcessingFixture(t, nil)
	f.uploader.result = &storage.UploadResult{
		Backend:  "local",
		URL:      "/uploads/x.jpg",
		Failures: []string{"imgbb: upload backend not configured"},
	}

	resp, err := f.svc.Process(context.Background(), ProcessRequest{
		Image:       pngBytes(t, 4, 4, color.White),
		ProcessType: strategy.SuperResolution,
		Intensity:   0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/x.jpg", resp.ProcessedImageURL)

	f.publisher.Wait()
	assert.Equal(t, int64(1), f.metrics.GetMetrics().UploadFailures)
}

func TestProcess_ClosedPool(t *testing.T) {
	f := newProcessingFixture(t, nil)
	f.svc.pool.Close()

	_, err := f.svc.Process(context.Background(), ProcessRequest{
		Image:       pngBytes(t, 4, 4, color.White),
		ProcessType: strategy.SuperResolution,
		Intensity:   0.5,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))

	f.publisher.Wait()
	assert.Equal(t, int64(1), f.metrics.GetMetrics().Failed)
}

func TestCompletionMessage(t *testing.T) {
	assert.Equal(t, "Super-Resolution Complete! Mode: QUALITY | Time: 0.42s",
		completionMessage(strategy.SuperResolution, modelsMeta("QUALITY", "0.42s"), false))
	assert.Equal(t, "Restoration Complete! Mode: AUTO | Time: 1.00s",
		completionMessage(strategy.Restoration, modelsMeta("", "1.00s"), false))
}

func TestDecodeBase64Image(t *testing.T) {
	raw := pngBytes(t, 2, 2, color.White)
	encoded := storage.EncodeDataURL(raw)

	got, err := decodeBase64Image(encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = decodeBase64Image(encoded[strings.IndexByte(encoded, ',')+1:])
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = decodeBase64Image("   ")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	_, err = decodeBase64Image("***")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func modelsMeta(mode, elapsed string) models.EnhancementMetadata {
	return models.EnhancementMetadata{ProcessingMode: mode, ProcessingTime: elapsed}
}

// stalledStrategy never finishes its pipeline before its context ends
type stalledStrategy struct {
	brokenStrategy
}

func (s stalledStrategy) Process(ctx context.Context, img image.Image, intensity float64, mode string) (*enhancement.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestProcess_PipelineDeadlines(t *testing.T) {
	tests := []struct {
		name            string
		pipelineTimeout time.Duration
		requestTimeout  time.Duration
		wantDegraded    bool
	}{
		{"pipeline deadline serves fallback", 30 * time.Millisecond, 10 * time.Second, true},
		{"request deadline is a timeout", 10 * time.Second, 30 * time.Millisecond, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessingFixture(t, strategy.NewRegistry(
				stalledStrategy{brokenStrategy{name: strategy.SuperResolution}},
			))
			f.svc.timeout = tt.pipelineTimeout

			ctx, cancel := context.WithTimeout(context.Background(), tt.requestTimeout)
			defer cancel()

			resp, err := f.svc.Process(ctx, ProcessRequest{
				Image:       pngBytes(t, 4, 4, color.White),
				ProcessType: strategy.SuperResolution,
				Intensity:   0.5,
			})

			f.publisher.Wait()
			m := f.metrics.GetMetrics()
			if tt.wantDegraded {
				require.NoError(t, err)
				assert.True(t, resp.Degraded)
				assert.Equal(t, "Image enhanced with super-resolution", resp.Message)
				assert.Equal(t, "8x8", resp.ProcessedSize)
				assert.Equal(t, int64(1), m.Degraded)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout), err.Error())
			assert.Equal(t, int64(1), m.Failed)
			assert.Empty(t, f.uploader.filenames)
		})
	}
}

func TestProcess_ConcurrentRequestsGetDistinctFiles(t *testing.T) {
	f := newProcessingFixture(t, nil)
	img := pngBytes(t, 4, 4, color.White)

	var wg sync.WaitGroup
	for _, id := range []string{"req-a", "req-b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.Process(WithRequestID(context.Background(), id), ProcessRequest{
				Image:       img,
				ProcessType: strategy.SuperResolution,
				Intensity:   0.1,
			})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	require.Len(t, f.uploader.filenames, 2)
	assert.NotEqual(t, f.uploader.filenames[0], f.uploader.filenames[1])
}

func TestProcessedFilename(t *testing.T) {
	at := time.Unix(1700000000, 0)

	assert.Equal(t, "processed_restoration_1700000000_abc-123.jpg", processedFilename(strategy.Restoration, "abc-123", at))
	assert.Equal(t, "processed_restoration_1700000000_etcpasswd.jpg", processedFilename(strategy.Restoration, "../etc/passwd", at))

	long := strings.Repeat("a", 80)
	assert.Equal(t, "processed_restoration_1700000000_"+long[:maxFilenameIDLen]+".jpg", processedFilename(strategy.Restoration, long, at))

	generated := processedFilename(strategy.Restoration, "///", at)
	assert.Regexp(t, `^processed_restoration_1700000000_[0-9a-f-]{36}\.jpg$`, generated)
}
