// internal/domain/content/model.go

package content

import (
	"strings"
	"time"
)

// Source identifies where a content item was published
type Source struct {
	Name             string
	CredibilityScore float64
}

// Metrics holds engagement counters for a content item
type Metrics struct {
	Views    int
	Likes    int
	Shares   int
	Comments int
}

// Item represents a single piece of content flowing through the feed
type Item struct {
	ID          string
	Title       string
	Description string
	Body        string
	Topics      []string
	Categories  []string
	SourceType  string
	Source      Source
	PublishedAt *time.Time
	CreatedAt   time.Time
	Metrics     Metrics
}

// PrimaryTopic returns the first declared topic, or "" if none
func (i Item) PrimaryTopic() string {
	if len(i.Topics) == 0 {
		return ""
	}
	return i.Topics[0]
}

// PrimaryCategory returns the first declared category, or "" if none
func (i Item) PrimaryCategory() string {
	if len(i.Categories) == 0 {
		return ""
	}
	return i.Categories[0]
}

// Age returns the item age relative to now. The boolean is false when the
// item carries no publish date.
func (i Item) Age(now time.Time) (time.Duration, bool) {
	if i.PublishedAt == nil {
		return 0, false
	}
	return now.Sub(*i.PublishedAt), true
}

// WordCount counts whitespace-separated words across title, description and body
func (i Item) WordCount() int {
	n := 0
	for _, s := range []string{i.Title, i.Description, i.Body} {
		n += len(strings.Fields(s))
	}
	return n
}

// Text returns the searchable text of the item in lower case
func (i Item) Text() string {
	return strings.ToLower(i.Title + " " + i.Description + " " + i.Body)
}
