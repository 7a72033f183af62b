package prompts

import (
	"errors"
	"strings"
	"testing"

	"github.com/acgh213/promptvault/internal/access"
)

func TestDraftClean_OK(t *testing.T) {
	policy := access.MustPolicy(access.DefaultSchema())
	d := Draft{
		Title:        "  Cold Email Opener ",
		Category:     " Sales ",
		Body:         "Write an opener for {{company}}.",
		RequiredTier: "Architect",
	}
	got, tier, err := d.Clean(policy)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if tier != access.TierArchitect {
		t.Errorf("tier = %q", tier)
	}
	if got.Title != "Cold Email Opener" || got.Category != "sales" {
		t.Errorf("unexpected cleaned draft: %+v", got)
	}
}

func TestDraftClean_Errors(t *testing.T) {
	policy := access.MustPolicy(access.DefaultSchema())
	d := Draft{
		Title:        strings.Repeat("x", maxTitleLength+1),
		Body:         "   ",
		RequiredTier: "platinum",
	}
	_, _, err := d.Clean(policy)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"title", "body", "required_tier"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected error for %s, got %v", field, verr.Fields)
		}
	}
}

func TestDraftClean_SlugWithoutLetters(t *testing.T) {
	policy := access.MustPolicy(access.DefaultSchema())
	_, _, err := Draft{Title: "!!!", Body: "body", RequiredTier: "free"}.Clean(policy)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["slug"] == "" {
		t.Fatalf("expected slug error, got %v", err)
	}
}
