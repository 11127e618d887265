package chat

import (
	"fmt"
	"strings"
)

// genreDescriptions expands the genre slugs accepted by story generation
var genreDescriptions = map[string]string{
	"science-fiction":         "classic science fiction with advanced technology",
	"cyberpunk":               "cyberpunk with high-tech, low-life themes and corporate dystopia",
	"space-opera":             "epic space opera with galactic empires and space battles",
	"dystopian":               "dystopian future with oppressive societies",
	"time-travel":             "time travel with temporal paradoxes",
	"alien-contact":           "first contact with alien civilizations",
	"post-apocalyptic":        "post-apocalyptic survival and rebuilding",
	"steampunk":               "steampunk with Victorian aesthetics and steam technology",
	"hard-sci-fi":             "hard science fiction with realistic scientific accuracy",
	"soft-sci-fi":             "soft science fiction focusing on social sciences",
	"military-sci-fi":         "military science fiction with warfare and tactics",
	"biopunk":                 "biopunk with biotechnology and genetic modification",
	"nanopunk":                "nanopunk with nanotechnology",
	"solarpunk":               "solarpunk with sustainable technology and optimistic futures",
	"dieselpunk":              "dieselpunk with diesel-era technology",
	"atompunk":                "atompunk with atomic age aesthetics",
	"retrofuturism":           "retrofuturism with vintage future visions",
	"climate-fiction":         "climate fiction addressing environmental change",
	"generation-ship":         "generation ship narratives with multi-generational space travel",
	"first-contact":           "first contact scenarios with alien species",
	"parallel-universe":       "parallel universe with alternate realities",
	"virtual-reality":         "virtual reality and simulated worlds",
	"artificial-intelligence": "AI and robotics with machine consciousness",
	"genetic-engineering":     "genetic engineering and designer biology",
	"colonization":            "space colonization and terraforming",
}

// DefaultGenres is used when a story request names none
var DefaultGenres = []string{"science-fiction"}

// DefaultStoryPrompt is used when a story request carries no prompt
const DefaultStoryPrompt = "Generate a creative sci-fi story concept"

// Message types reported by ClassifyMessage
const (
	MessageStoryConcept         = "story_concept"
	MessageCharacterDevelopment = "character_development"
	MessageWorldBuilding        = "world_building"
	MessagePlotTwist            = "plot_twist"
)

const (
	wikiContextChars    = 300
	historyMessages     = 3
	historyMessageChars = 200
)

// HistoryMessage is one turn of a prior conversation
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenrePhrase joins the descriptions of genres; unknown slugs pass through
func GenrePhrase(genres []string) string {
	descs := make([]string, len(genres))
	for i, g := range genres {
		if d, ok := genreDescriptions[g]; ok {
			descs[i] = d
		} else {
			descs[i] = g
		}
	}
	return strings.Join(descs, ", ")
}

// AssistantPrompt wraps a plain question for the text-only assistant
func AssistantPrompt(message string) string {
	return fmt.Sprintf(`You are a helpful AI assistant specializing in historical artifacts, ancient civilizations, and archaeology.

User question: %s

IMPORTANT: 
- For simple questions, give SHORT, direct answers (1-3 sentences)
- For complex questions, provide detailed analysis
- Match your response length to the question complexity
- Always be complete but concise

Answer the question appropriately:`, message)
}

// ImagePrompt wraps a question about an attached artifact image
func ImagePrompt(message string) string {
	return fmt.Sprintf(`You are an expert art historian and archaeologist analyzing a historical artifact image.

User's question: %s

IMPORTANT INSTRUCTIONS:
- Answer the SPECIFIC question asked - don't provide unnecessary information
- For simple questions (like "what language?"), give SHORT, direct answers (1-2 sentences)
- For complex questions or requests for details, provide comprehensive analysis
- Always be complete but concise - match your response length to the question complexity
- If uncertain, say so briefly

Analyze the image and answer the user's question directly and appropriately.`, message)
}

// HistoricalPrompt builds the historical-info question. wikiSummary and
// artifactContext may be empty.
func HistoricalPrompt(query, wikiSummary, artifactContext string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a helpful AI assistant specializing in historical artifacts and civilizations. The user asks: '%s'", query)
	if wikiSummary != "" {
		fmt.Fprintf(&sb, "\n\nRelevant Wikipedia context: %s...", truncateRunes(wikiSummary, wikiContextChars))
	}
	if artifactContext != "" {
		fmt.Fprintf(&sb, "\n\nArtifact context: %s", artifactContext)
	}
	return sb.String()
}

// StoryPrompt builds the sci-fi story concept request
func StoryPrompt(prompt string, genres []string, customization string) string {
	if prompt == "" {
		prompt = DefaultStoryPrompt
	}
	genresText := GenrePhrase(genres)

	custom := ""
	if customization != "" {
		custom = "\n\nUser's specific preferences: " + customization
	}

	return fmt.Sprintf(`You are a creative sci-fi writer and futurist. Based on this historical artifact image, create an engaging story concept that blends these genres: %[1]s.

%[2]s%[3]s

Please provide:
1. **Historical Context**: Brief background of the artifact
2. **Genre Fusion**: How this artifact could be reimagined blending %[1]s
3. **Story Concept**: A compelling narrative hook that combines elements from all selected genres
4. **Technology/World Element**: Advanced technology or world-building that fits the genre blend
5. **Character Hook**: Potential protagonist or conflict that works with the genre combination

Make it creative, engaging, and seamlessly blend the selected genres. Focus on "what if" scenarios that merge historical fact with speculative fiction.`, genresText, prompt, custom)
}

// SciFiChatPrompt builds the writing-assistant prompt from the last few turns
func SciFiChatPrompt(message string, previous []HistoryMessage) string {
	conversation := ""
	if len(previous) > 0 {
		if len(previous) > historyMessages {
			previous = previous[len(previous)-historyMessages:]
		}
		var sb strings.Builder
		sb.WriteString("\n\nPrevious conversation:\n")
		for _, m := range previous {
			role := "Assistant"
			if m.Role == "user" {
				role = "Human"
			}
			fmt.Fprintf(&sb, "%s: %s...\n", role, truncateRunes(m.Content, historyMessageChars))
		}
		conversation = sb.String()
	}

	return fmt.Sprintf(`You are an expert sci-fi writing assistant and creative partner. Help the user develop their science fiction story based on historical artifacts.

User's request: %s

%s

Provide helpful, creative responses for:
- Story development and plot ideas
- Character creation and development
- World-building and setting details
- Scientific concepts and technology
- Plot twists and narrative hooks
- Writing techniques and style advice

Keep responses engaging, creative, and focused on science fiction storytelling. Use markdown formatting for better readability.`, message, conversation)
}

// ClassifyMessage tags a sci-fi chat message by the first keyword group it hits
func ClassifyMessage(message string) string {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "character", "protagonist", "villain"):
		return MessageCharacterDevelopment
	case containsAny(lower, "world", "setting", "planet", "society"):
		return MessageWorldBuilding
	case containsAny(lower, "plot", "twist", "ending", "conflict"):
		return MessagePlotTwist
	default:
		return MessageStoryConcept
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
