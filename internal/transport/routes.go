package transport

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	apperrors "heri-science-api/internal/errors"
	"heri-science-api/internal/repository"
	"heri-science-api/internal/service"
	"heri-science-api/pkg/models"

	"github.com/gin-gonic/gin"
)

func status(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		aiModels := "fallback"
		if deps.AIReady {
			aiModels = "loaded"
		}
		c.JSON(http.StatusOK, models.StatusResponse{
			Message:      serviceName,
			Version:      serviceVersion,
			Status:       "running",
			AIModels:     aiModels,
			Capabilities: deps.Capabilities,
		})
	}
}

func healthCheck(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		aiStatus := "basic"
		if deps.AIReady {
			aiStatus = "ready"
		}
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       "healthy",
			Version:      serviceVersion,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			AIStatus:     aiStatus,
			Capabilities: deps.Capabilities,
		})
	}
}

func metrics(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{}
		if deps.Metrics != nil {
			body["events"] = deps.Metrics.GetMetrics()
		}
		if deps.Processing != nil {
			body["pool"] = deps.Processing.PoolStats()
		}
		c.JSON(http.StatusOK, body)
	}
}

func listHistory(history repository.HistoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := repository.DefaultListLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				fail(c, "invalid limit", apperrors.NewValidationError("limit must be a non-negative integer", err))
				return
			}
			limit = n
		}

		records, err := history.List(c.Request.Context(), limit)
		if err != nil {
			fail(c, "failed to list history", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
	}
}

func getHistory(history repository.HistoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := history.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				err = apperrors.NewNotFoundError("Record not found", err)
			}
			fail(c, "failed to load history record", err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func processImage(svc ImageProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("image")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				fail(c, "upload rejected", err)
				return
			}
			fail(c, "invalid upload", apperrors.NewValidationError("No image file provided", err))
			return
		}
		if header.Filename == "" {
			fail(c, "invalid upload", apperrors.NewValidationError("No selected file", nil))
			return
		}

		intensity, err := strconv.ParseFloat(c.DefaultPostForm("intensity", "0.75"), 64)
		if err != nil || math.IsNaN(intensity) {
			fail(c, "invalid intensity", apperrors.NewValidationError("Intensity must be a number between 0 and 1", err))
			return
		}

		file, err := header.Open()
		if err != nil {
			fail(c, "invalid upload", apperrors.NewValidationError("Could not read uploaded file", err))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			fail(c, "invalid upload", apperrors.NewValidationError("Could not read uploaded file", err))
			return
		}

		resp, err := svc.Process(c.Request.Context(), service.ProcessRequest{
			Image:       data,
			Filename:    header.Filename,
			ProcessType: c.DefaultPostForm("process_type", service.DefaultProcessType),
			Intensity:   intensity,
			Mode:        c.DefaultPostForm("mode", service.DefaultMode),
		})
		if err != nil {
			fail(c, "image processing failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// bindJSON decodes the body; on failure it responds with missing as the error
func bindJSON(c *gin.Context, dst interface{}, missing string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			fail(c, "request rejected", err)
			return false
		}
		fail(c, "invalid request format", apperrors.NewValidationError(missing, err))
		return false
	}
	return true
}

func autoAnalyze(svc ArtifactAnalyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AutoAnalyzeRequest
		if !bindJSON(c, &req, "No image provided") {
			return
		}

		analysis, err := svc.AutoAnalyze(c.Request.Context(), req.Image)
		if err != nil {
			fail(c, "auto-analysis failed", err)
			return
		}
		c.JSON(http.StatusOK, models.AutoAnalyzeResponse{Success: true, Analysis: *analysis})
	}
}

func analyzeArtifact(svc ArtifactAnalyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AnalyzeArtifactRequest
		if !bindJSON(c, &req, "No image URL provided") {
			return
		}

		report, err := svc.AnalyzeArtifact(c.Request.Context(), req.ImageURL)
		if err != nil {
			fail(c, "artifact analysis failed", err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func historicalInfo(svc ArtifactAnalyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.HistoricalInfoRequest
		if !bindJSON(c, &req, "Invalid request format") {
			return
		}

		resp, err := svc.HistoricalInfo(c.Request.Context(), req)
		if err != nil {
			fail(c, "historical lookup failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func generateStory(svc ArtifactAnalyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.StoryRequest
		if !bindJSON(c, &req, "Invalid request format") {
			return
		}

		resp, err := svc.GenerateStory(c.Request.Context(), req)
		if err != nil {
			fail(c, "story generation failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func scifiChat(svc ArtifactAnalyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ChatRequest
		if !bindJSON(c, &req, "No message provided") {
			return
		}

		resp, err := svc.SciFiChat(c.Request.Context(), req)
		if err != nil {
			fail(c, "chat failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func chatHandler(svc ArtifactAnalyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ChatRequest
		if !bindJSON(c, &req, "No message provided") {
			return
		}

		resp, err := svc.Chat(c.Request.Context(), req)
		if err != nil {
			fail(c, "chat failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
