package wikipedia

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWiki answers opensearch with the given titles and summaries for known titles
func fakeWiki(t *testing.T, titles []string, extracts map[string]string) *Client {
	return newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("action") {
		case "opensearch":
			quoted := make([]string, len(titles))
			urls := make([]string, len(titles))
			for i, title := range titles {
				quoted[i] = fmt.Sprintf("%q", title)
				urls[i] = fmt.Sprintf("%q", "https://en.wikipedia.org/wiki/"+strings.ReplaceAll(title, " ", "_"))
			}
			fmt.Fprintf(w, `[%q,[%s],[],[%s]]`, q.Get("search"), strings.Join(quoted, ","), strings.Join(urls, ","))
		case "query":
			title := q.Get("titles")
			extract, ok := extracts[title]
			if !ok {
				fmt.Fprint(w, `{"query":{"pages":{"-1":{"title":"missing"}}}}`)
				return
			}
			fmt.Fprint(w, pageJSON("7", title, extract))
		}
	})
}

func TestArtifactInfo(t *testing.T) {
	client := fakeWiki(t,
		[]string{"Ancient Egyptian pottery", "Egyptian vase"},
		map[string]string{"Egyptian vase": "A vase.", "Ancient Egyptian pottery": "Pottery."},
	)

	info := client.ArtifactInfo(context.Background(), "vase", "Egyptian")
	require.True(t, info.Found)
	// closest title wins over search order
	assert.Equal(t, "Egyptian vase", info.Title)
	assert.Equal(t, "A vase.", info.Summary)
	require.Len(t, info.RelatedArticles, 1)
	assert.Equal(t, "Ancient Egyptian pottery", info.RelatedArticles[0].Title)
}

func TestArtifactInfo_NotFound(t *testing.T) {
	empty := fakeWiki(t, nil, nil)
	info := empty.ArtifactInfo(context.Background(), "vase", "")
	assert.False(t, info.Found)
	assert.Equal(t, "No Wikipedia information found for this artifact.", info.Message)

	noSummary := fakeWiki(t, []string{"Vase"}, nil)
	info = noSummary.ArtifactInfo(context.Background(), "vase", "")
	assert.False(t, info.Found)
	assert.Equal(t, "Could not retrieve detailed information.", info.Message)
}

func TestCivilizationInfo(t *testing.T) {
	direct := fakeWiki(t, nil, map[string]string{"Maya": "The Maya."})
	info := direct.CivilizationInfo(context.Background(), "Maya")
	require.True(t, info.Found)
	assert.Equal(t, "Maya", info.Title)

	searched := fakeWiki(t, []string{"Maya civilization"}, map[string]string{"Maya civilization": "Mesoamerican."})
	info = searched.CivilizationInfo(context.Background(), "Mayans")
	require.True(t, info.Found)
	assert.Equal(t, "Maya civilization", info.Title)

	missing := fakeWiki(t, nil, nil)
	info = missing.CivilizationInfo(context.Background(), "Atlantis")
	assert.False(t, info.Found)
	assert.Equal(t, "No Wikipedia information found for Atlantis.", info.Message)
}

func TestPeriodInfo(t *testing.T) {
	client := fakeWiki(t, []string{"Bronze Age"}, map[string]string{"Bronze Age": "Copper and tin."})
	info := client.PeriodInfo(context.Background(), "Bronze Age", "Europe")
	require.True(t, info.Found)
	assert.Equal(t, "Copper and tin.", info.Summary)

	missing := fakeWiki(t, nil, nil)
	info = missing.PeriodInfo(context.Background(), "Jurassic", "")
	assert.Equal(t, "No information found for period: Jurassic", info.Message)
}

func TestLookup(t *testing.T) {
	client := fakeWiki(t,
		[]string{"Amphora"},
		map[string]string{"Amphora": "A jar.", "Greece": "A country."},
	)
	ctx := context.Background()

	plain := client.Lookup(ctx, "amphora", KindArtifact, nil)
	assert.True(t, plain.Found)
	assert.Equal(t, "Amphora", plain.Title)

	civ := client.Lookup(ctx, "x", KindCivilization, &LookupContext{Civilization: "Greece"})
	assert.Equal(t, "Greece", civ.Title)

	artifact := client.Lookup(ctx, "amphora", KindArtifact, &LookupContext{})
	assert.Equal(t, "Amphora", artifact.Title)
}

func TestCleanExtract(t *testing.T) {
	assert.Equal(t, "", CleanExtract("", 800))
	assert.Equal(t, "a\n\nb", CleanExtract("a\n\n\nb\n", 800))

	// sentence boundary beyond 70% of the window
	text := strings.Repeat("x", 80) + "." + strings.Repeat("y", 50)
	assert.Equal(t, strings.Repeat("x", 80)+"....", CleanExtract(text, 100))

	// boundary too early: hard cut
	text = "x." + strings.Repeat("y", 200)
	assert.Equal(t, "x."+strings.Repeat("y", 98)+"...", CleanExtract(text, 100))

	// multibyte text is cut on runes
	got := CleanExtract(strings.Repeat("é", 20), 10)
	assert.Equal(t, strings.Repeat("é", 10)+"...", got)
}

func TestRankResults(t *testing.T) {
	in := []SearchResult{{Title: "Roman Empire"}, {Title: "Roman bust"}, {Title: "Bust"}}
	ranked := RankResults("roman bust", in)

	assert.Equal(t, "Roman bust", ranked[0].Title)
	assert.Equal(t, "Roman Empire", in[0].Title, "input must not be reordered")

	ties := RankResults("ab", []SearchResult{{Title: "ac"}, {Title: "ad"}})
	assert.Equal(t, "ac", ties[0].Title)
}

func TestFormatMarkdown(t *testing.T) {
	assert.Equal(t, "nothing", FormatMarkdown(Info{Message: "nothing"}))
	assert.Equal(t, "Information not available.", FormatMarkdown(Info{}))

	md := FormatMarkdown(Info{
		Found:           true,
		Title:           "Sphinx",
		Summary:         "Lion body.",
		URL:             "https://en.wikipedia.org/wiki/Sphinx",
		RelatedArticles: []SearchResult{{Title: "Giza", URL: "u"}},
	})
	assert.Contains(t, md, "**Sphinx**")
	assert.Contains(t, md, "[Wikipedia](https://en.wikipedia.org/wiki/Sphinx)")
	assert.Contains(t, md, "- [Giza](u)")
}
