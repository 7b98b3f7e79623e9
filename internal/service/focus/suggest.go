// internal/service/focus/suggest.go

package focus

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"feedcore/internal/domain/focus"
)

// clusterSimilarity is the word-overlap threshold for grouping engaged
// topics into one suggestion cluster.
const clusterSimilarity = 0.3

// minClusterSize is the smallest topic cluster worth proposing.
const minClusterSize = 2

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {},
	"this": {}, "that": {}, "into": {}, "about": {}, "news": {},
	"of": {}, "in": {}, "on": {}, "to": {}, "a": {}, "an": {},
}

// SuggestFocusAreas proposes focus areas from the user's engagement history.
// Without history the template library is returned as generic suggestions.
func (m *Manager) SuggestFocusAreas(ctx context.Context, userID string) ([]focus.Draft, error) {
	var engaged []string
	if m.history != nil {
		engaged = m.history.EngagedTopics(userID)
	}

	if len(engaged) == 0 {
		return templateDrafts(), nil
	}

	existing, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list focus areas: %w", err)
	}
	covered := make(map[string]struct{})
	for _, a := range existing {
		for _, t := range a.Topics {
			covered[strings.ToLower(t)] = struct{}{}
		}
	}

	// Frequency count of engaged topics the user hasn't covered yet.
	counts := make(map[string]int)
	display := make(map[string]string)
	for _, t := range engaged {
		key := strings.ToLower(strings.TrimSpace(t))
		if key == "" {
			continue
		}
		if _, ok := covered[key]; ok {
			continue
		}
		counts[key]++
		display[key] = strings.TrimSpace(t)
	}

	frequent := make([]string, 0, len(counts))
	for key, n := range counts {
		if n >= 2 {
			frequent = append(frequent, key)
		}
	}
	sort.Slice(frequent, func(i, j int) bool {
		if counts[frequent[i]] != counts[frequent[j]] {
			return counts[frequent[i]] > counts[frequent[j]]
		}
		return frequent[i] < frequent[j]
	})

	clusters := clusterTopics(frequent)

	var drafts []focus.Draft
	for _, cluster := range clusters {
		if len(cluster) < minClusterSize {
			continue
		}

		topics := make([]string, 0, len(cluster))
		for _, key := range cluster {
			topics = append(topics, display[key])
		}

		name := clusterName(cluster, counts)
		drafts = append(drafts, focus.Draft{
			Name:        name,
			Description: fmt.Sprintf("Suggested from your recent engagement with %s", strings.Join(topics, ", ")),
			Topics:      topics,
			Priority:    focus.PriorityMedium,
		})
	}

	if len(drafts) == 0 {
		return templateDrafts(), nil
	}
	return drafts, nil
}

// clusterTopics greedily groups topics by pairwise word-overlap similarity.
// Input order determines cluster seeds, so callers pass topics sorted by
// engagement frequency.
func clusterTopics(topics []string) [][]string {
	var clusters [][]string
	assigned := make(map[string]struct{})

	for _, seed := range topics {
		if _, ok := assigned[seed]; ok {
			continue
		}
		cluster := []string{seed}
		assigned[seed] = struct{}{}

		for _, other := range topics {
			if _, ok := assigned[other]; ok {
				continue
			}
			if wordOverlap(seed, other) >= clusterSimilarity {
				cluster = append(cluster, other)
				assigned[other] = struct{}{}
			}
		}
		clusters = append(clusters, cluster)
	}

	return clusters
}

// clusterName derives a name from the cluster's most frequent significant
// words, title-cased.
func clusterName(cluster []string, counts map[string]int) string {
	wordWeights := make(map[string]int)
	for _, topic := range cluster {
		for _, word := range strings.Fields(topic) {
			if len(word) < 3 {
				continue
			}
			if _, ok := stopwords[word]; ok {
				continue
			}
			wordWeights[word] += counts[topic]
		}
	}

	words := make([]string, 0, len(wordWeights))
	for w := range wordWeights {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if wordWeights[words[i]] != wordWeights[words[j]] {
			return wordWeights[words[i]] > wordWeights[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > 2 {
		words = words[:2]
	}
	for i, w := range words {
		words[i] = titleCase(w)
	}
	if len(words) == 0 {
		return titleCase(cluster[0])
	}
	return strings.Join(words, " & ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func templateDrafts() []focus.Draft {
	drafts := make([]focus.Draft, 0, len(templateLibrary))
	for _, t := range templateLibrary {
		drafts = append(drafts, focus.Draft{
			Name:        t.Name,
			Description: t.Description,
			Topics:      append([]string(nil), t.Topics...),
			Categories:  append([]string(nil), t.Categories...),
			Keywords:    append([]string(nil), t.Keywords...),
			SourceTypes: append([]string(nil), t.SourceTypes...),
			Priority:    t.Priority,
		})
	}
	return drafts
}
