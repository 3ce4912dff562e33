package extract

import (
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// baseStopwords is always excluded from keyword counting. German carries
// the bulk because the system's original deployments crawled German sites;
// a small English set rides along.
var baseStopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"und", "der", "die", "das", "ist", "für", "mit", "von", "zu", "in",
		"auf", "bei", "über", "aus", "durch", "an", "als", "auch", "sich",
		"es", "ein", "eine", "einen", "dem", "den", "des", "dass", "nicht",
		"aber", "oder", "weil", "wenn", "wir", "uns", "ihr", "euch", "sie",
		"ihnen", "ich", "du", "er", "mein", "dein", "sein", "unser", "euer",
		"kein", "mehr", "sehr", "etwas", "nichts", "viel", "wenig", "gut",
		"schlecht", "groß", "klein", "neu", "alt",
		"the", "and", "for", "with", "this", "that", "from", "are", "was",
		"were", "has", "have", "not", "but", "you", "your",
	} {
		baseStopwords[w] = struct{}{}
	}
}

// Title returns the document title, trimmed.
func Title(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// MetaDescription returns the content of the description meta tag, if any.
func MetaDescription(doc *goquery.Document) string {
	content, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

// H1Headings returns the text of every h1 element in document order.
func H1Headings(doc *goquery.Document) []string {
	var headings []string
	doc.Find("h1").Each(func(_ int, sel *goquery.Selection) {
		headings = append(headings, strings.TrimSpace(sel.Text()))
	})
	return headings
}

// Text returns the document's visible text with script and style content
// removed.
func Text(doc *goquery.Document) string {
	clone := doc.Selection.Clone()
	clone.Find("script, style, noscript").Remove()
	return strings.TrimSpace(clone.Text())
}

// Keywords returns the topN most frequent words of the text, lowercased,
// alphabetic only, longer than two runes, with stop words removed.
// customStopwords is a comma-separated list; entries that are not purely
// alphabetic are discarded rather than honored.
func (s *Service) Keywords(text, customStopwords string) []string {
	if text == "" {
		return []string{}
	}

	stop := make(map[string]struct{}, len(baseStopwords))
	for w := range baseStopwords {
		stop[w] = struct{}{}
	}
	for _, raw := range strings.Split(customStopwords, ",") {
		w := strings.TrimSpace(raw)
		if w != "" && isAlpha(w) {
			stop[strings.ToLower(w)] = struct{}{}
		}
	}

	counts := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if !isAlpha(word) || len([]rune(word)) <= 2 {
			continue
		}
		if _, skip := stop[word]; skip {
			continue
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > s.keywordCount {
		words = words[:s.keywordCount]
	}
	return words
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
