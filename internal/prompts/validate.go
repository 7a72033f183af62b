package prompts

import (
	"fmt"
	"strings"

	"github.com/acgh213/promptvault/internal/access"
)

const (
	maxTitleLength   = 200
	maxSummaryLength = 500
)

// TierParser resolves user-supplied tier names against the configured table.
type TierParser interface {
	ParseTier(s string) (access.Tier, error)
}

// ValidationError lists every field problem found in an input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "invalid prompt: " + strings.Join(parts, "; ")
}

// Draft is the editable part of a prompt as submitted by an editor.
type Draft struct {
	Slug         string
	Title        string
	Summary      string
	Category     string
	Body         string
	RequiredTier string
}

// Clean trims the draft, checks it and resolves the tier. The returned
// tier is guaranteed to exist in tiers.
func (d Draft) Clean(tiers TierParser) (Draft, access.Tier, error) {
	d.Slug = strings.TrimSpace(d.Slug)
	d.Title = strings.TrimSpace(d.Title)
	d.Summary = strings.TrimSpace(d.Summary)
	d.Category = strings.ToLower(strings.TrimSpace(d.Category))

	fields := map[string]string{}
	if d.Title == "" {
		fields["title"] = "is required"
	} else if len(d.Title) > maxTitleLength {
		fields["title"] = fmt.Sprintf("must be at most %d characters", maxTitleLength)
	}
	if len(d.Summary) > maxSummaryLength {
		fields["summary"] = fmt.Sprintf("must be at most %d characters", maxSummaryLength)
	}
	if strings.TrimSpace(d.Body) == "" {
		fields["body"] = "is required"
	}
	slugSource := d.Slug
	if slugSource == "" {
		slugSource = d.Title
	}
	if d.Title != "" && NormalizeSlug(slugSource) == "" {
		fields["slug"] = "must contain letters or digits"
	}

	tier, err := tiers.ParseTier(d.RequiredTier)
	if err != nil {
		fields["required_tier"] = "unknown tier"
	}

	if len(fields) > 0 {
		return d, "", &ValidationError{Fields: fields}
	}
	return d, tier, nil
}
