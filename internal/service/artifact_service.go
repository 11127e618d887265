package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"unicode/utf8"

	"heri-science-api/internal/analyzer"
	"heri-science-api/internal/chat"
	apperrors "heri-science-api/internal/errors"
	"heri-science-api/internal/logger"
	"heri-science-api/internal/observer"
	"heri-science-api/internal/ocr"
	"heri-science-api/internal/wikipedia"
	"heri-science-api/pkg/models"
	"heri-science-api/pkg/validation"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// autoSummaryChars bounds the Wikipedia summary attached to auto-analysis
	autoSummaryChars = 500
	// unknownArtifactType is reported when an upload cannot be inspected
	unknownArtifactType = "Historical Artifact"
	creativeWritingMode = "creative_writing"
)

// Sources cited by historical-info
const (
	SourceChatModel  = "OpenAI GPT"
	SourceWikipedia  = "Wikipedia"
	SourceDatabases  = "Archaeological databases"
	poweredByLocalAI = "Local AI"
)

// WikiClient is the part of *wikipedia.Client the artifact service uses
type WikiClient interface {
	Search(ctx context.Context, query string, limit int) ([]wikipedia.SearchResult, error)
	Summary(ctx context.Context, title string) (*wikipedia.Article, error)
	Lookup(ctx context.Context, query, kind string, lc *wikipedia.LookupContext) wikipedia.Info
}

// ChatResponder is the part of *chat.Service the artifact service uses
type ChatResponder interface {
	Respond(ctx context.Context, prompt string, c chat.Context) chat.Reply
}

// ImageLoader fetches images by URL; storage.ImageFetcher satisfies it
type ImageLoader interface {
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)
}

// ArtifactDeps are the collaborators of an ArtifactService. Wiki and OCR
// may be nil when those capabilities are disabled.
type ArtifactDeps struct {
	Analyzer     analyzer.ImageAnalyzer
	Images       ImageLoader
	Chat         ChatResponder
	Wiki         WikiClient
	OCR          ocr.Reader
	Events       observer.Subject
	Validator    *validation.QualityValidator
	URLValidator *validation.URLValidator
}

// ArtifactService answers the analysis, history and story endpoints
type ArtifactService struct {
	analyzer  analyzer.ImageAnalyzer
	images    ImageLoader
	chat      ChatResponder
	wiki      WikiClient
	ocr       ocr.Reader
	events    observer.Subject
	validator *validation.QualityValidator
	urls      *validation.URLValidator
}

// NewArtifactService creates an artifact service
func NewArtifactService(deps ArtifactDeps) *ArtifactService {
	if deps.Validator == nil {
		deps.Validator = validation.NewQualityValidator()
	}
	if deps.URLValidator == nil {
		deps.URLValidator = validation.NewURLValidator()
	}
	return &ArtifactService{
		analyzer:  deps.Analyzer,
		images:    deps.Images,
		chat:      deps.Chat,
		wiki:      deps.Wiki,
		ocr:       deps.OCR,
		events:    deps.Events,
		validator: deps.Validator,
		urls:      deps.URLValidator,
	}
}

// AutoAnalyze inspects a base64 upload, reads any visible text and attaches
// a Wikipedia summary for the detected culture. An image that cannot be
// decoded yields a generic analysis rather than an error.
func (s *ArtifactService) AutoAnalyze(ctx context.Context, encoded string) (*models.AutoAnalysis, error) {
	data, err := decodeBase64Image(encoded)
	if err != nil {
		return nil, err
	}

	info, err := s.validator.ValidateUpload(data)
	if err != nil {
		logger.WithError(err).Warn("Auto-analysis could not read the image")
		return unknownAnalysis(), nil
	}
	img, _, err := decodeImage(data)
	if err != nil {
		logger.WithError(err).Warn("Auto-analysis could not decode the image")
		return unknownAnalysis(), nil
	}

	var (
		ins  models.Inspection
		text string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ins = s.analyzer.Inspect(img)
		return nil
	})
	if s.ocr != nil && s.ocr.Available() {
		g.Go(func() error {
			t, err := s.ocr.ReadText(gctx, data)
			if err != nil {
				logger.WithError(err).Debug("OCR produced no text")
				return nil
			}
			text = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewProcessingError("Image analysis failed", err)
	}

	culture := ins.Culture
	analysis := &models.AutoAnalysis{
		DetectedType:          culture.DetectedCulture,
		Confidence:            culture.Confidence,
		Characteristics:       culture.Characteristics,
		BackgroundTheme:       culture.BackgroundTheme,
		SuggestedEnhancements: culture.SuggestedEnhancements,
		SuggestedMode:         ins.SuggestedMode,
		SuggestedIntensity:    ins.SuggestedIntensity,
		ImageInfo: models.ImageInfo{
			Dimensions: info.Dimensions(),
			Format:     info.Format,
			Mode:       info.Mode,
		},
		DetectedText:     text,
		Suggestions:      validation.Messages(s.validator.ReviewInspection(ins)),
		AutomaticPrompts: automaticPrompts(culture.DetectedCulture, text),
	}
	analysis.WikipediaInfo = s.autoWikipedia(ctx, culture.DetectedCulture)
	return analysis, nil
}

// autoWikipedia summarizes the top search hit for term
func (s *ArtifactService) autoWikipedia(ctx context.Context, term string) *models.WikipediaSummary {
	if s.wiki == nil || term == "" {
		return nil
	}

	results, err := s.wiki.Search(ctx, term, 1)
	if err != nil || len(results) == 0 {
		if err != nil {
			logger.WithError(err).WithField("term", term).Warn("Wikipedia search failed")
		}
		return nil
	}
	top := results[0]

	summary := top.Description
	url := top.URL
	var thumbnail string
	if article, err := s.wiki.Summary(ctx, top.Title); err == nil {
		if article.Extract != "" {
			summary = article.Extract
		}
		if url == "" {
			url = article.URL
		}
		thumbnail = article.Thumbnail
	} else if !errors.Is(err, wikipedia.ErrNotFound) {
		logger.WithError(err).WithField("title", top.Title).Warn("Wikipedia summary failed")
	}

	return &models.WikipediaSummary{
		Title:       top.Title,
		Summary:     truncateRunes(summary, autoSummaryChars),
		URL:         url,
		Thumbnail:   thumbnail,
		Description: top.Description,
	}
}

// AnalyzeArtifact fetches an image and reports on it
func (s *ArtifactService) AnalyzeArtifact(ctx context.Context, imageURL string) (*models.ArtifactReport, error) {
	if err := s.urls.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}

	img, err := s.images.FetchImage(ctx, imageURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("Image fetch timeout", err)
		}
		return nil, apperrors.NewNetworkError("Failed to fetch image", err)
	}

	report := BuildArtifactReport(s.analyzer.Inspect(img))
	return &report, nil
}

// HistoricalInfo answers a history question, grounding the chat prompt in
// Wikipedia when an artifact context is supplied
func (s *ArtifactService) HistoricalInfo(ctx context.Context, req models.HistoricalInfoRequest) (*models.HistoricalInfoResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" && req.ArtifactContext == nil {
		return nil, apperrors.NewValidationError("No query provided", nil)
	}
	useWikipedia := req.UseWikipedia == nil || *req.UseWikipedia

	var wiki *models.WikipediaSummary
	if useWikipedia && req.ArtifactContext != nil && s.wiki != nil {
		ac := req.ArtifactContext
		name := ac.ArtifactType
		if name == "" {
			name = query
		}
		info := s.wiki.Lookup(ctx, name, wikipedia.KindArtifact, &wikipedia.LookupContext{
			ArtifactType: ac.ArtifactType,
			Civilization: ac.Civilization,
			Period:       ac.Period,
		})
		if info.Found {
			wiki = &models.WikipediaSummary{
				Title:     info.Title,
				Summary:   info.Summary,
				URL:       info.URL,
				Thumbnail: info.Thumbnail,
			}
		}
	}

	var wikiSummary string
	if wiki != nil {
		wikiSummary = wiki.Summary
	}
	prompt := chat.HistoricalPrompt(query, wikiSummary, describeContext(req.ArtifactContext))
	reply := s.respond(ctx, prompt, chat.Context{}, "historical-info")
	aiAvailable := !reply.Fallback

	sources := []string{SourceChatModel, SourceWikipedia, SourceDatabases}
	if wiki == nil {
		sources = []string{SourceChatModel, SourceDatabases}
	}

	resp := &models.HistoricalInfoResponse{
		Information: reply.Text,
		Wikipedia:   wiki,
		Sources:     sources,
	}
	switch {
	case aiAvailable && wiki != nil:
		resp.Confidence, resp.PoweredBy = "Very High", SourceChatModel+" + "+SourceWikipedia
	case wiki != nil:
		resp.Confidence, resp.PoweredBy = "High", SourceWikipedia
	case aiAvailable:
		resp.Confidence, resp.PoweredBy = "Moderate", SourceChatModel
	default:
		resp.Confidence, resp.PoweredBy = "Moderate", poweredByLocalAI
	}
	return resp, nil
}

// GenerateStory writes a sci-fi story concept around an artifact image
func (s *ArtifactService) GenerateStory(ctx context.Context, req models.StoryRequest) (*models.StoryResponse, error) {
	if req.ImageURL != "" {
		if err := s.urls.ValidateImageURL(req.ImageURL); err != nil {
			return nil, err
		}
	}
	genres := req.Genres
	if len(genres) == 0 {
		genres = chat.DefaultGenres
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = chat.DefaultStoryPrompt
	}

	reply := s.respond(ctx, chat.StoryPrompt(prompt, genres, req.Customization), chat.Context{
		HasImage: true,
		ImageURL: req.ImageURL,
		Mode:     creativeWritingMode,
		Genres:   genres,
	}, "scifi-story")

	return &models.StoryResponse{
		Success:     true,
		StoryIdea:   reply.Text,
		MessageType: chat.MessageStoryConcept,
		Genres:      genres,
	}, nil
}

// SciFiChat continues a story-development conversation
func (s *ArtifactService) SciFiChat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperrors.NewValidationError("No message provided", nil)
	}

	c, err := s.chatContext(req.Context)
	if err != nil {
		return nil, err
	}
	reply := s.respond(ctx, chat.SciFiChatPrompt(message, c.PreviousMessages), c, "scifi-chat")
	return &models.ChatResponse{
		Success:     true,
		Response:    reply.Text,
		MessageType: chat.ClassifyMessage(message),
	}, nil
}

// Chat is the general assistant, with image analysis when the context
// carries an image
func (s *ArtifactService) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperrors.NewValidationError("No message provided", nil)
	}

	c, err := s.chatContext(req.Context)
	if err != nil {
		return nil, err
	}
	prompt := chat.AssistantPrompt(message)
	if c.HasImage && c.ImageURL != "" {
		prompt = chat.ImagePrompt(message)
	}
	reply := s.respond(ctx, prompt, c, "chat")
	return &models.ChatResponse{Success: true, Response: reply.Text}, nil
}

// respond calls the chat service and reports fallbacks
func (s *ArtifactService) respond(ctx context.Context, prompt string, c chat.Context, feature string) chat.Reply {
	if s.chat == nil {
		return chat.Reply{Text: chat.FallbackMessage, Fallback: true}
	}

	reply := s.chat.Respond(ctx, prompt, c)
	if reply.Fallback && s.events != nil {
		s.events.NotifyObservers(ctx, observer.ProcessingEvent{
			Type:        observer.ChatFallback,
			RequestID:   RequestID(ctx),
			ProcessType: feature,
			Metadata:    map[string]interface{}{"has_image": c.HasImage},
		})
	}
	logger.WithFields(logrus.Fields{
		"feature":  feature,
		"provider": reply.Provider,
		"fallback": reply.Fallback,
	}).Debug("Chat reply")
	return reply
}

// chatContext converts a request context, validating any image URL it will
// make the chat service fetch
func (s *ArtifactService) chatContext(c models.ChatContext) (chat.Context, error) {
	if c.HasImage && c.ImageURL != "" {
		if err := s.urls.ValidateImageURL(c.ImageURL); err != nil {
			return chat.Context{}, err
		}
	}
	return toChatContext(c), nil
}

func toChatContext(c models.ChatContext) chat.Context {
	history := make([]chat.HistoryMessage, len(c.PreviousMessages))
	for i, m := range c.PreviousMessages {
		history[i] = chat.HistoryMessage{Role: m.Role, Content: m.Content}
	}
	return chat.Context{
		HasImage:         c.HasImage,
		ImageURL:         c.ImageURL,
		Mode:             c.Mode,
		ProcessingType:   c.ProcessingType,
		SessionName:      c.SessionName,
		Genres:           c.Genres,
		PreviousMessages: history,
	}
}

// describeContext renders an artifact context for prompts
func describeContext(ac *models.ArtifactContext) string {
	if ac == nil {
		return ""
	}
	var parts []string
	if ac.ArtifactType != "" {
		parts = append(parts, "artifact_type: "+ac.ArtifactType)
	}
	if ac.Civilization != "" {
		parts = append(parts, "civilization: "+ac.Civilization)
	}
	if ac.Period != "" {
		parts = append(parts, "period: "+ac.Period)
	}
	return strings.Join(parts, ", ")
}

// automaticPrompts are conversation starters offered after auto-analysis
func automaticPrompts(culture, text string) []string {
	if culture == "" {
		return []string{}
	}
	prompts := []string{
		fmt.Sprintf("What is the historical significance of %s artifacts?", culture),
		fmt.Sprintf("How were objects like this made in %s times?", strings.TrimPrefix(culture, "Ancient ")),
	}
	if text != "" {
		prompts = append(prompts, "What does the inscription on this artifact say?")
	}
	return prompts
}

func unknownAnalysis() *models.AutoAnalysis {
	return &models.AutoAnalysis{
		DetectedType:          unknownArtifactType,
		Characteristics:       []string{},
		SuggestedEnhancements: []string{},
		Suggestions:           []string{},
		AutomaticPrompts:      []string{},
	}
}

// truncateRunes cuts s to n runes and marks the cut with "..."
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
