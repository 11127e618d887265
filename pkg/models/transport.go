package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ProcessResponse is returned by the process-image endpoint
type ProcessResponse struct {
	Status            string              `json:"status"`
	RequestID         string              `json:"request_id"`
	ProcessedImageURL string              `json:"processedImageUrl"`
	Message           string              `json:"message"`
	Metadata          EnhancementMetadata `json:"metadata"`
	OriginalSize      string              `json:"original_size"`
	ProcessedSize     string              `json:"processed_size"`
	UploadBackend     string              `json:"upload_backend,omitempty"`
	Degraded          bool                `json:"degraded,omitempty"`
}

// AutoAnalyzeRequest carries a base64 image, with or without a data: header
type AutoAnalyzeRequest struct {
	Image string `json:"image" binding:"required"`
}

// ImageInfo describes the decoded upload
type ImageInfo struct {
	Dimensions string `json:"dimensions"`
	Format     string `json:"format"`
	Mode       string `json:"mode"`
}

// WikipediaSummary is the trimmed article attached to analyses
type WikipediaSummary struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Description string `json:"description,omitempty"`
}

// AutoAnalysis is the automatic first look at an uploaded image
type AutoAnalysis struct {
	DetectedType          string            `json:"detected_type"`
	Confidence            float64           `json:"confidence"`
	Characteristics       []string          `json:"characteristics"`
	BackgroundTheme       string            `json:"background_theme"`
	SuggestedEnhancements []string          `json:"suggested_enhancements"`
	SuggestedMode         string            `json:"suggested_mode"`
	SuggestedIntensity    float64           `json:"suggested_intensity"`
	ImageInfo             ImageInfo         `json:"image_info"`
	DetectedText          string            `json:"detected_text,omitempty"`
	Suggestions           []string          `json:"suggestions"`
	WikipediaInfo         *WikipediaSummary `json:"wikipedia_info"`
	AutomaticPrompts      []string          `json:"automatic_prompts"`
}

// AutoAnalyzeResponse wraps an AutoAnalysis
type AutoAnalyzeResponse struct {
	Success  bool         `json:"success"`
	Analysis AutoAnalysis `json:"analysis"`
}

// AnalyzeArtifactRequest names the image to analyze
type AnalyzeArtifactRequest struct {
	ImageURL string `json:"image_url" binding:"required"`
}

// ArtifactReport is the structured artifact analysis
type ArtifactReport struct {
	Civilization      string  `json:"civilization"`
	Period            string  `json:"period"`
	ArtifactType      string  `json:"artifact_type"`
	Materials         string  `json:"materials"`
	Characteristics   string  `json:"characteristics"`
	Confidence        float64 `json:"confidence"`
	PreservationState string  `json:"preservation_state"`
	FullReport        string  `json:"full_report"`
}

// ArtifactContext narrows a historical-info query
type ArtifactContext struct {
	ArtifactType string `json:"artifact_type,omitempty"`
	Civilization string `json:"civilization,omitempty"`
	Period       string `json:"period,omitempty"`
}

// HistoricalInfoRequest asks about a topic, optionally tied to an artifact.
// UseWikipedia defaults to true when omitted.
type HistoricalInfoRequest struct {
	Query           string           `json:"query"`
	ArtifactContext *ArtifactContext `json:"artifact_context,omitempty"`
	UseWikipedia    *bool            `json:"use_wikipedia,omitempty"`
}

// HistoricalInfoResponse reports the answer and where it came from
type HistoricalInfoResponse struct {
	Information string            `json:"information"`
	Wikipedia   *WikipediaSummary `json:"wikipedia"`
	Sources     []string          `json:"sources"`
	Confidence  string            `json:"confidence"`
	PoweredBy   string            `json:"powered_by"`
}

// StoryRequest asks for a sci-fi story concept around an artifact image
type StoryRequest struct {
	ImageURL      string   `json:"imageUrl"`
	Prompt        string   `json:"prompt"`
	SessionID     string   `json:"sessionId"`
	Genres        []string `json:"genres"`
	Customization string   `json:"customization"`
}

// StoryResponse carries the generated concept
type StoryResponse struct {
	Success     bool     `json:"success"`
	StoryIdea   string   `json:"storyIdea"`
	MessageType string   `json:"messageType"`
	Genres      []string `json:"genres"`
}

// ChatMessage is one prior conversation turn
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatContext is the optional client state sent with chat messages
type ChatContext struct {
	HasImage         bool          `json:"hasImage"`
	ImageURL         string        `json:"imageUrl"`
	Mode             string        `json:"mode,omitempty"`
	ProcessingType   string        `json:"processingType,omitempty"`
	SessionName      string        `json:"sessionName,omitempty"`
	Genres           []string      `json:"genres,omitempty"`
	PreviousMessages []ChatMessage `json:"previousMessages,omitempty"`
}

// ChatRequest is used by both the sci-fi and general chat endpoints
type ChatRequest struct {
	Message   string      `json:"message" binding:"required"`
	SessionID string      `json:"sessionId,omitempty"`
	Context   ChatContext `json:"context"`
}

// ChatResponse is returned by the chat endpoints. MessageType is only set by
// the sci-fi chat.
type ChatResponse struct {
	Success     bool   `json:"success"`
	Response    string `json:"response"`
	MessageType string `json:"messageType,omitempty"`
}

// StatusResponse is the service banner
type StatusResponse struct {
	Message      string          `json:"message"`
	Version      string          `json:"version"`
	Status       string          `json:"status"`
	AIModels     string          `json:"ai_models"`
	Capabilities map[string]bool `json:"capabilities"`
}

// HealthResponse reports liveness and capability status
type HealthResponse struct {
	Status       string          `json:"status"`
	Version      string          `json:"version"`
	Timestamp    string          `json:"timestamp"`
	AIStatus     string          `json:"ai_status"`
	Capabilities map[string]bool `json:"capabilities"`
}
