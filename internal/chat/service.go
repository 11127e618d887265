package chat

import (
	"bytes"
	"context"
	"image"
	"time"

	"heri-science-api/internal/logger"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// FallbackMessage is returned when no provider produced a reply
const FallbackMessage = `I'm sorry, but I'm currently unable to access the AI service. This could be due to:

• Network connectivity issues
• API service temporarily unavailable
• Configuration problems

Please try again in a moment. If you uploaded an image, I would normally be able to analyze it and provide detailed historical and archaeological insights.`

// ImageFailureMessage is returned when an attached image cannot be loaded
const ImageFailureMessage = "Failed to download or process the image. Please check the image URL and try again."

// maxImageSide bounds attached images before they are sent to a provider
const maxImageSide = 1024

// Context carries the optional conversation state sent by clients
type Context struct {
	HasImage         bool             `json:"hasImage"`
	ImageURL         string           `json:"imageUrl"`
	Mode             string           `json:"mode,omitempty"`
	ProcessingType   string           `json:"processingType,omitempty"`
	SessionName      string           `json:"sessionName,omitempty"`
	Genres           []string         `json:"genres,omitempty"`
	PreviousMessages []HistoryMessage `json:"previousMessages,omitempty"`
}

// Reply is the outcome of a chat call
type Reply struct {
	Text     string
	Provider string
	Fallback bool
}

// ImageLoader resolves an image URL; storage.HTTPImageFetcher satisfies it
type ImageLoader interface {
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)
}

// Service fans a prompt out to providers in order
type Service struct {
	providers []Provider
	images    ImageLoader
}

// NewService creates a chat service. images may be nil, in which case image
// context is ignored.
func NewService(images ImageLoader, providers ...Provider) *Service {
	return &Service{providers: providers, images: images}
}

// Providers lists provider names in try order
func (s *Service) Providers() []string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Name()
	}
	return names
}

// Chat returns the first non-empty provider reply, or FallbackMessage
func (s *Service) Chat(ctx context.Context, prompt string, c Context) string {
	return s.Respond(ctx, prompt, c).Text
}

// Respond is Chat with provenance. It never fails.
func (s *Service) Respond(ctx context.Context, prompt string, c Context) Reply {
	req := Request{Prompt: prompt}

	if c.HasImage && c.ImageURL != "" && s.images != nil {
		jpegBytes, err := s.loadImage(ctx, c.ImageURL)
		if err != nil {
			logger.WithError(err).Warn("Chat image could not be loaded")
			return Reply{Text: ImageFailureMessage, Fallback: true}
		}
		req.ImageJPEG = jpegBytes
	}

	for _, p := range s.providers {
		start := time.Now()
		text, err := p.Generate(ctx, req)
		if err == nil && text != "" {
			logger.WithFields(logrus.Fields{
				"provider":  p.Name(),
				"duration":  time.Since(start).String(),
				"has_image": len(req.ImageJPEG) > 0,
			}).Debug("Chat reply generated")
			return Reply{Text: text, Provider: p.Name()}
		}
		if err == nil {
			err = ErrEmptyReply
		}
		logger.WithFields(logrus.Fields{
			"provider": p.Name(),
			"error":    err.Error(),
		}).Warn("Chat provider failed")
	}

	return Reply{Text: FallbackMessage, Fallback: true}
}

// loadImage fetches, downsizes and re-encodes an attached image
func (s *Service) loadImage(ctx context.Context, imageURL string) ([]byte, error) {
	img, err := s.images.FetchImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() > maxImageSide || b.Dy() > maxImageSide {
		img = imaging.Fit(img, maxImageSide, maxImageSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
