package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"heri-science-api/internal/logger"

	"github.com/arbovm/levenshtein"
)

// Lookup kinds
const (
	KindArtifact     = "artifact"
	KindCivilization = "civilization"
	KindPeriod       = "period"
)

const defaultExtractLength = 800

// Info is the outcome of a lookup. When Found is false only Message is set.
type Info struct {
	Found           bool           `json:"found"`
	Message         string         `json:"message,omitempty"`
	Title           string         `json:"title,omitempty"`
	Summary         string         `json:"summary,omitempty"`
	URL             string         `json:"url,omitempty"`
	Thumbnail       string         `json:"thumbnail,omitempty"`
	RelatedArticles []SearchResult `json:"related_articles,omitempty"`
}

// LookupContext narrows a lookup to an artifact, civilization or period
type LookupContext struct {
	ArtifactType string `json:"artifact_type,omitempty"`
	Civilization string `json:"civilization,omitempty"`
	Period       string `json:"period,omitempty"`
}

func notFound(msg string) Info {
	return Info{Found: false, Message: msg}
}

func fromArticle(a *Article) Info {
	return Info{
		Found:     true,
		Title:     a.Title,
		Summary:   CleanExtract(a.Extract, defaultExtractLength),
		URL:       a.URL,
		Thumbnail: a.Thumbnail,
	}
}

// ArtifactInfo searches for "<civilization> <name>" and summarizes the
// closest hit; the other hits are returned as related articles.
func (c *Client) ArtifactInfo(ctx context.Context, name, civilization string) Info {
	query := joinQuery(civilization, name)

	results, err := c.Search(ctx, query, 3)
	if err != nil {
		logger.WithError(err).WithField("query", query).Warn("Wikipedia search failed")
	}
	if len(results) == 0 {
		return notFound("No Wikipedia information found for this artifact.")
	}
	results = RankResults(query, results)

	article, err := c.Summary(ctx, results[0].Title)
	if err != nil {
		logSummaryError(err, results[0].Title)
		return notFound("Could not retrieve detailed information.")
	}

	info := fromArticle(article)
	if len(results) > 1 {
		info.RelatedArticles = results[1:]
	}
	return info
}

// CivilizationInfo tries the civilization as a title, then searches
// "<civilization> civilization"
func (c *Client) CivilizationInfo(ctx context.Context, civilization string) Info {
	article, err := c.Summary(ctx, civilization)
	if err != nil {
		logSummaryError(err, civilization)

		results, serr := c.Search(ctx, civilization+" civilization", 1)
		if serr == nil && len(results) > 0 {
			article, err = c.Summary(ctx, results[0].Title)
		}
	}
	if err != nil || article == nil {
		return notFound(fmt.Sprintf("No Wikipedia information found for %s.", civilization))
	}
	return fromArticle(article)
}

// PeriodInfo summarizes the top hit for "<period> <region>"
func (c *Client) PeriodInfo(ctx context.Context, period, region string) Info {
	results, err := c.Search(ctx, joinQuery(period, region), 1)
	if err != nil || len(results) == 0 {
		return notFound(fmt.Sprintf("No information found for period: %s", period))
	}

	article, err := c.Summary(ctx, results[0].Title)
	if err != nil {
		logSummaryError(err, results[0].Title)
		return notFound("Could not retrieve detailed information.")
	}
	return fromArticle(article)
}

// Lookup dispatches on kind. Without a context it summarizes the top search
// hit for query.
func (c *Client) Lookup(ctx context.Context, query, kind string, lc *LookupContext) Info {
	if lc == nil {
		results, err := c.Search(ctx, query, 1)
		if err != nil || len(results) == 0 {
			return notFound("No information found.")
		}
		article, err := c.Summary(ctx, results[0].Title)
		if err != nil {
			return notFound("No information found.")
		}
		return fromArticle(article)
	}

	switch {
	case kind == KindCivilization && lc.Civilization != "":
		return c.CivilizationInfo(ctx, lc.Civilization)
	case kind == KindPeriod && lc.Period != "":
		return c.PeriodInfo(ctx, lc.Period, "")
	default:
		name := lc.ArtifactType
		if name == "" {
			name = query
		}
		return c.ArtifactInfo(ctx, name, lc.Civilization)
	}
}

func logSummaryError(err error, title string) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	logger.WithError(err).WithField("title", title).Warn("Wikipedia summary failed")
}

var newlineRuns = regexp.MustCompile(`\n+`)

// CleanExtract normalizes newlines and truncates to maxLen characters,
// preferring a sentence boundary in the last 30% of the window.
func CleanExtract(text string, maxLen int) string {
	if text == "" {
		return ""
	}

	text = newlineRuns.ReplaceAllString(text, "\n\n")

	runes := []rune(text)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
		if last := lastIndexRune(runes, '.'); float64(last) > float64(maxLen)*0.7 {
			runes = runes[:last+1]
		}
		text = string(runes) + "..."
	}

	return strings.TrimSpace(text)
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// RankResults orders results by edit distance between title and query,
// case-insensitively. Ties keep their search order.
func RankResults(query string, results []SearchResult) []SearchResult {
	ranked := make([]SearchResult, len(results))
	copy(ranked, results)

	q := strings.ToLower(query)
	dist := make(map[string]int, len(ranked))
	for _, r := range ranked {
		dist[r.Title] = levenshtein.Distance(q, strings.ToLower(r.Title))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return dist[ranked[i].Title] < dist[ranked[j].Title]
	})
	return ranked
}

// FormatMarkdown renders info as a short sourced answer
func FormatMarkdown(info Info) string {
	if !info.Found {
		if info.Message != "" {
			return info.Message
		}
		return "Information not available."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**\n\n%s\n\n**Source:** [Wikipedia](%s)\n\n", info.Title, info.Summary, info.URL)
	sb.WriteString("*This information is sourced from Wikipedia and may require verification for academic use.*\n")

	if len(info.RelatedArticles) > 0 {
		sb.WriteString("\n\n**Related Topics:**\n")
		for i, a := range info.RelatedArticles {
			if i == 3 {
				break
			}
			fmt.Fprintf(&sb, "- [%s](%s)\n", a.Title, a.URL)
		}
	}
	return sb.String()
}
