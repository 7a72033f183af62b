package access_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acgh213/promptvault/internal/access"
)

const tenWords = "one two three four five six seven eight nine ten"

func defaultPolicy(t *testing.T) *access.Policy {
	t.Helper()
	p, err := access.NewPolicy(access.DefaultSchema())
	require.NoError(t, err)
	return p
}

func TestRank(t *testing.T) {
	p := defaultPolicy(t)

	tests := []struct {
		tier access.Tier
		want int
	}{
		{access.TierFree, 0},
		{access.TierArchitect, 1},
		{access.TierInitiate, 2},
		{access.TierElite, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			got, err := p.Rank(tt.tier)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanAccess_Reflexive(t *testing.T) {
	p := defaultPolicy(t)
	for _, spec := range p.Tiers() {
		ok, err := p.CanAccess(spec.ID, spec.ID)
		require.NoError(t, err)
		assert.True(t, ok, "tier %s should access its own content", spec.ID)
	}
}

func TestCanAccess_MatchesRank(t *testing.T) {
	p := defaultPolicy(t)
	for _, a := range p.Tiers() {
		for _, b := range p.Tiers() {
			ra, _ := p.Rank(a.ID)
			rb, _ := p.Rank(b.ID)
			ok, err := p.CanAccess(a.ID, b.ID)
			require.NoError(t, err)
			assert.Equal(t, ra >= rb, ok, "CanAccess(%s, %s)", a.ID, b.ID)
		}
	}
}

func TestPreviewPercentage(t *testing.T) {
	p := defaultPolicy(t)
	want := map[access.Tier]int{
		access.TierFree:      10,
		access.TierArchitect: 40,
		access.TierInitiate:  70,
		access.TierElite:     100,
	}
	for tier, pct := range want {
		got, err := p.PreviewPercentage(tier)
		require.NoError(t, err)
		assert.Equal(t, pct, got, "tier %s", tier)
	}
}

func TestGetAccessibleContent_Scenarios(t *testing.T) {
	p := defaultPolicy(t)
	suffix := access.PreviewMarker + access.DefaultUpgradeNotice

	tests := []struct {
		name      string
		body      string
		requester access.Tier
		required  access.Tier
		want      access.Decision
	}{
		{
			name:      "free reader on architect prompt sees one word",
			body:      tenWords,
			requester: access.TierFree,
			required:  access.TierArchitect,
			want:      access.Decision{RenderedText: "one" + suffix},
		},
		{
			name:      "elite reader on architect prompt sees everything",
			body:      tenWords,
			requester: access.TierElite,
			required:  access.TierArchitect,
			want:      access.Decision{RenderedText: tenWords, HasFullAccess: true},
		},
		{
			name:      "empty body yields suffix alone",
			body:      "",
			requester: access.TierFree,
			required:  access.TierElite,
			want:      access.Decision{RenderedText: suffix},
		},
		{
			name:      "initiate reader gets seventy percent",
			body:      tenWords,
			requester: access.TierInitiate,
			required:  access.TierElite,
			want:      access.Decision{RenderedText: "one two three four five six seven" + suffix},
		},
		{
			name:      "floor rounds down",
			body:      "a b c d e f g h i",
			requester: access.TierArchitect,
			required:  access.TierElite,
			want:      access.Decision{RenderedText: "a b c" + suffix},
		},
		{
			name:      "short body rounds to zero words",
			body:      "alpha beta",
			requester: access.TierFree,
			required:  access.TierArchitect,
			want:      access.Decision{RenderedText: suffix},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.GetAccessibleContent(tt.body, tt.requester, tt.required)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetAccessibleContent_FullAccessIsByteIdentical(t *testing.T) {
	p := defaultPolicy(t)
	bodies := []string{
		"",
		"  leading and   repeated spaces ",
		"tabs\tand\nnewlines\r\nkept",
		"unicode: héllo wörld ✓",
	}
	for _, body := range bodies {
		got, err := p.GetAccessibleContent(body, access.TierElite, access.TierFree)
		require.NoError(t, err)
		assert.True(t, got.HasFullAccess)
		assert.Equal(t, body, got.RenderedText)
	}
}

func TestGetAccessibleContent_SplitsOnLiteralSpacesOnly(t *testing.T) {
	s := access.DefaultSchema()
	s.Tiers[0].PreviewPercent = 50
	p, err := access.NewPolicy(s)
	require.NoError(t, err)

	// Tokens: "a\tb", "", "c\nd", "e" -> 4 tokens, 2 shown.
	got, err := p.GetAccessibleContent("a\tb  c\nd e", access.TierFree, access.TierElite)
	require.NoError(t, err)
	assert.Equal(t, "a\tb "+p.Suffix(), got.RenderedText)
}

func TestGetAccessibleContent_PreviewIsWordPrefix(t *testing.T) {
	p := defaultPolicy(t)
	body := strings.Repeat("word ", 37) + "end"
	for _, spec := range p.Tiers() {
		got, err := p.GetAccessibleContent(body, spec.ID, p.Highest())
		require.NoError(t, err)
		if spec.ID == p.Highest() {
			continue
		}
		require.False(t, got.HasFullAccess)
		require.True(t, strings.HasSuffix(got.RenderedText, p.Suffix()))

		preview := strings.TrimSuffix(got.RenderedText, p.Suffix())
		if preview == "" {
			continue
		}
		bodyWords := strings.Split(body, " ")
		previewWords := strings.Split(preview, " ")
		require.LessOrEqual(t, len(previewWords), len(bodyWords))
		assert.Equal(t, bodyWords[:len(previewWords)], previewWords)
	}
}

func TestGetAccessibleContent_Idempotent(t *testing.T) {
	p := defaultPolicy(t)
	first, err := p.GetAccessibleContent(tenWords, access.TierArchitect, access.TierInitiate)
	require.NoError(t, err)
	second, err := p.GetAccessibleContent(tenWords, access.TierArchitect, access.TierInitiate)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGetAccessibleContent_FullPreviewStillLocked(t *testing.T) {
	s := access.DefaultSchema()
	s.Tiers[2].PreviewPercent = 100 // initiate
	p, err := access.NewPolicy(s)
	require.NoError(t, err)

	got, err := p.GetAccessibleContent(tenWords, access.TierInitiate, access.TierElite)
	require.NoError(t, err)
	assert.False(t, got.HasFullAccess)
	assert.Equal(t, tenWords+p.Suffix(), got.RenderedText)
}

func TestGetAccessibleContent_ZeroPercent(t *testing.T) {
	s := access.DefaultSchema()
	s.Tiers[0].PreviewPercent = 0
	p, err := access.NewPolicy(s)
	require.NoError(t, err)

	got, err := p.GetAccessibleContent(tenWords, access.TierFree, access.TierArchitect)
	require.NoError(t, err)
	assert.Equal(t, p.Suffix(), got.RenderedText)
}

func TestInvalidTier(t *testing.T) {
	p := defaultPolicy(t)
	bogus := access.Tier("platinum")

	_, err := p.GetAccessibleContent(tenWords, bogus, access.TierFree)
	var invalid *access.InvalidTierError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, bogus, invalid.Tier)

	_, err = p.GetAccessibleContent(tenWords, access.TierFree, bogus)
	assert.True(t, errors.As(err, &invalid))

	_, err = p.Rank(bogus)
	assert.True(t, errors.As(err, &invalid))

	_, err = p.CanAccess(access.TierElite, bogus)
	assert.True(t, errors.As(err, &invalid))

	_, err = p.PreviewPercentage(bogus)
	assert.True(t, errors.As(err, &invalid))

	_, err = p.UpgradeMessage(bogus, access.TierElite)
	assert.True(t, errors.As(err, &invalid))
}

func TestUpgradeMessage(t *testing.T) {
	p := defaultPolicy(t)

	msg, err := p.UpgradeMessage(access.TierElite, access.TierInitiate)
	require.NoError(t, err)
	assert.Empty(t, msg)

	msg, err = p.UpgradeMessage(access.TierFree, access.TierInitiate)
	require.NoError(t, err)
	assert.Equal(t, "Upgrade to Initiate to unlock this content.", msg)
}

func TestUpgradeMessage_UsesConfiguredLabel(t *testing.T) {
	s := access.DefaultSchema()
	s.Tiers[3].Label = "Elite Circle"
	p, err := access.NewPolicy(s)
	require.NoError(t, err)

	msg, err := p.UpgradeMessage(access.TierFree, access.TierElite)
	require.NoError(t, err)
	assert.Equal(t, "Upgrade to Elite Circle to unlock this content.", msg)
}

func TestCustomUpgradeNotice(t *testing.T) {
	s := access.DefaultSchema()
	s.UpgradeNotice = "Subscribe for more."
	p, err := access.NewPolicy(s)
	require.NoError(t, err)

	got, err := p.GetAccessibleContent("", access.TierFree, access.TierElite)
	require.NoError(t, err)
	assert.Equal(t, "...\n\nSubscribe for more.", got.RenderedText)
}

func TestParseTier(t *testing.T) {
	p := defaultPolicy(t)

	got, err := p.ParseTier("  Elite ")
	require.NoError(t, err)
	assert.Equal(t, access.TierElite, got)

	_, err = p.ParseTier("master")
	var invalid *access.InvalidTierError
	assert.True(t, errors.As(err, &invalid))
}

func TestLowestHighest(t *testing.T) {
	p := defaultPolicy(t)
	assert.Equal(t, access.TierFree, p.Lowest())
	assert.Equal(t, access.TierElite, p.Highest())
}

func TestTiersReturnsCopy(t *testing.T) {
	p := defaultPolicy(t)
	tiers := p.Tiers()
	tiers[0].ID = "mutated"
	assert.Equal(t, access.TierFree, p.Lowest())
}
