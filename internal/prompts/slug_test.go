package prompts

import (
	"strings"
	"testing"
)

func TestNormalizeSlug(t *testing.T) {
	cases := map[string]string{
		"Cold Email Opener":        "cold-email-opener",
		"  --Already-Slugged--  ":  "already-slugged",
		"SEO: Meta Descriptions!!": "seo-meta-descriptions",
		"Résumé Review":            "r-sum-review",
		"a   b":                    "a-b",
		"***":                      "",
		"v2.0 release notes":       "v2-0-release-notes",
	}
	for in, want := range cases {
		if got := NormalizeSlug(in); got != want {
			t.Errorf("NormalizeSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeSlug_Truncates(t *testing.T) {
	got := NormalizeSlug(strings.Repeat("abcd ", 40))
	if len(got) > maxSlugLength {
		t.Fatalf("slug length %d exceeds %d", len(got), maxSlugLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Fatalf("slug should not end with a hyphen: %q", got)
	}
}
