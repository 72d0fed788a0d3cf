package autotag

import (
	"context"
	"sort"
	"strings"

	"github.com/streed/meetnotes/internal/constants"
)

// KeywordTagger picks frequent words and two-word phrases from the summary
// itself. It needs no model.
type KeywordTagger struct {
	MaxTags int
}

var commonWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "this": true, "that": true,
	"it": true, "its": true, "we": true, "our": true, "their": true, "into": true,
	"when": true, "based": true, "using": true, "all": true, "not": true, "no": true,
	"has": true, "have": true, "had": true, "will": true, "can": true, "may": true,
	"e.g.": true, "eg": true, "vs": true, "per": true, "both": true, "each": true,
}

func (k *KeywordTagger) SuggestTags(_ context.Context, text string) ([]string, error) {
	maxTags := k.MaxTags
	if maxTags <= 0 {
		maxTags = constants.DefaultMaxAutoTags
	}

	counts := make(map[string]int)
	var order []string
	count := func(term string) {
		if counts[term] == 0 {
			order = append(order, term)
		}
		counts[term]++
	}

	for _, line := range strings.Split(text, "\n") {
		// Section headings like "Key Concepts:" carry no topic.
		if head, rest, ok := strings.Cut(line, ":"); ok && len(strings.Fields(head)) <= 3 {
			line = rest
		}

		var prev string
		for _, raw := range strings.Fields(line) {
			word := CleanTag(raw)
			if len(word) < constants.MinTagLength || commonWords[word] || stopTags[word] {
				prev = ""
				continue
			}
			count(word)
			if prev != "" {
				count(prev + " " + word)
			}
			prev = word
		}
	}

	candidates := make([]string, 0, len(order))
	for _, term := range order {
		if counts[term] > 1 || strings.Contains(term, " ") {
			candidates = append(candidates, term)
		}
	}

	score := func(term string) int {
		s := counts[term] * 2
		if strings.Contains(term, " ") {
			s++
		}
		return s
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return score(candidates[i]) > score(candidates[j])
	})

	return CleanTags(candidates, maxTags), nil
}
