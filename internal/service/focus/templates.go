// internal/service/focus/templates.go

package focus

import (
	"context"
	"fmt"
	"strings"

	"feedcore/internal/domain/focus"
)

// templateLibrary is the pre-built focus area catalog.
var templateLibrary = []focus.Template{
	{
		Key:         "technology",
		Name:        "Technology",
		Description: "Software, hardware and the companies building them",
		Topics:      []string{"Technology", "Software", "Artificial Intelligence", "Cybersecurity", "Startups"},
		Categories:  []string{"technology", "science"},
		Keywords:    []string{"launch", "funding", "open source", "release", "breach"},
		SourceTypes: []string{"news", "blog"},
		Priority:    focus.PriorityHigh,
	},
	{
		Key:         "business",
		Name:        "Business & Markets",
		Description: "Company news, markets and the wider economy",
		Topics:      []string{"Business", "Economy", "Markets", "Finance"},
		Categories:  []string{"business", "finance"},
		Keywords:    []string{"earnings", "acquisition", "ipo", "merger", "layoffs"},
		SourceTypes: []string{"news"},
		Priority:    focus.PriorityMedium,
	},
	{
		Key:         "science",
		Name:        "Science",
		Description: "Research findings and scientific discovery",
		Topics:      []string{"Science", "Space", "Physics", "Biology", "Climate"},
		Categories:  []string{"science"},
		Keywords:    []string{"study", "research", "discovery", "peer-reviewed"},
		SourceTypes: []string{"journal", "news"},
		Priority:    focus.PriorityMedium,
	},
	{
		Key:         "health",
		Name:        "Health & Medicine",
		Description: "Public health, medicine and wellbeing",
		Topics:      []string{"Health", "Medicine", "Nutrition", "Mental Health"},
		Categories:  []string{"health"},
		Keywords:    []string{"clinical trial", "vaccine", "treatment", "outbreak"},
		SourceTypes: []string{"news", "journal"},
		Priority:    focus.PriorityMedium,
	},
}

// Templates returns the pre-built focus area library.
func (m *Manager) Templates() []focus.Template {
	out := make([]focus.Template, len(templateLibrary))
	copy(out, templateLibrary)
	return out
}

// CreateFromTemplate instantiates a template for the user. When custom is
// non-nil its scalar fields override the template and its array fields are
// concatenated with the template's.
func (m *Manager) CreateFromTemplate(ctx context.Context, userID, templateKey string, custom *focus.Draft) (*focus.Area, error) {
	var tmpl *focus.Template
	for i := range templateLibrary {
		if strings.EqualFold(templateLibrary[i].Key, templateKey) {
			tmpl = &templateLibrary[i]
			break
		}
	}
	if tmpl == nil {
		return nil, fmt.Errorf("%w: unknown template %q", focus.ErrValidation, templateKey)
	}

	d := focus.Draft{
		Name:        tmpl.Name,
		Description: tmpl.Description,
		Topics:      append([]string(nil), tmpl.Topics...),
		Categories:  append([]string(nil), tmpl.Categories...),
		Keywords:    append([]string(nil), tmpl.Keywords...),
		SourceTypes: append([]string(nil), tmpl.SourceTypes...),
		Priority:    tmpl.Priority,
	}

	if custom != nil {
		if strings.TrimSpace(custom.Name) != "" {
			d.Name = custom.Name
		}
		if custom.Description != "" {
			d.Description = custom.Description
		}
		if custom.Priority != "" {
			d.Priority = custom.Priority
		}
		d.Topics = append(d.Topics, custom.Topics...)
		d.Categories = append(d.Categories, custom.Categories...)
		d.Keywords = append(d.Keywords, custom.Keywords...)
		d.SourceTypes = append(d.SourceTypes, custom.SourceTypes...)
	}

	return m.CreateFocusArea(ctx, userID, d)
}
