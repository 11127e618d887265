package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "heri-science-api/internal/errors"
	"heri-science-api/internal/logger"
	"heri-science-api/internal/observer"
	"heri-science-api/internal/repository"
	"heri-science-api/internal/service"
	"heri-science-api/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	serviceName    = "Heri-Science AI Backend"
	serviceVersion = "1.0.0"
	requestIDKey   = "request_id"
	// RequestIDHeader carries the request id in and out
	RequestIDHeader = "X-Request-ID"
)

// ImageProcessor runs process-image requests
type ImageProcessor interface {
	Process(ctx context.Context, req service.ProcessRequest) (*models.ProcessResponse, error)
	PoolStats() service.PoolStats
}

// ArtifactAnalyzer answers the analysis, history and story endpoints
type ArtifactAnalyzer interface {
	AutoAnalyze(ctx context.Context, encoded string) (*models.AutoAnalysis, error)
	AnalyzeArtifact(ctx context.Context, imageURL string) (*models.ArtifactReport, error)
	HistoricalInfo(ctx context.Context, req models.HistoricalInfoRequest) (*models.HistoricalInfoResponse, error)
	GenerateStory(ctx context.Context, req models.StoryRequest) (*models.StoryResponse, error)
	SciFiChat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// MetricsSource reports event counters
type MetricsSource interface {
	GetMetrics() observer.MetricsSnapshot
}

// Dependencies are the services behind the HTTP surface
type Dependencies struct {
	Processing ImageProcessor
	Artifacts  ArtifactAnalyzer
	History    repository.HistoryRepository
	Metrics    MetricsSource

	// AIReady reports whether at least one chat provider is configured
	AIReady      bool
	Capabilities map[string]bool
}

// Options tune the HTTP surface
type Options struct {
	MaxRequestBytes    int64
	UploadDir          string
	CORSAllowedOrigins []string
}

// NewHandler builds the gin engine wrapped in CORS handling
func NewHandler(deps Dependencies, opts Options) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		requestSizeLimiter(opts.MaxRequestBytes),
		errorHandler(),
	)

	// Configure routes
	r.GET("/", status(deps))
	api := r.Group("/api")
	{
		api.GET("/health", healthCheck(deps))
		api.GET("/metrics", metrics(deps))
		api.GET("/history", listHistory(deps.History))
		api.GET("/history/:id", getHistory(deps.History))

		api.POST("/process-image", processImage(deps.Processing))
		api.POST("/auto-analyze", autoAnalyze(deps.Artifacts))
		api.POST("/analyze-artifact", analyzeArtifact(deps.Artifacts))
		api.POST("/historical-info", historicalInfo(deps.Artifacts))
		api.POST("/scifi-story-generate", generateStory(deps.Artifacts))
		api.POST("/scifi-chat", scifiChat(deps.Artifacts))
		api.POST("/gemini-chat", chatHandler(deps.Artifacts))
	}
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	})(r)
}

// Middleware and helper functions
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(service.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id":  c.GetString(requestIDKey),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"user_agent":  c.Request.UserAgent(),
			"ip":          c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request completed with server error")
			return
		}
		entry.Info("Request completed")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return apperrors.GetStatusCode(err)
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, repository.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {error, message}. error carries the application
// message when there is one so clients can show it directly.
func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"request_id":  c.GetString(requestIDKey),
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		entry.Warn("Request rejected")
	} else {
		entry.Error("Request failed")
	}

	title := http.StatusText(code)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		title = appErr.Message
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   title,
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}

// fail responds with the status implied by err
func fail(c *gin.Context, message string, err error) {
	respondError(c, determineStatusCode(err), message, err)
}
