package access

import "testing"

func TestLowestHighest_ReturnTierIDs(t *testing.T) {
	p := &Policy{order: []TierSpec{
		{ID: "bronze", Label: "Bronze", PreviewPercent: 5},
		{ID: "silver", Label: "Silver", PreviewPercent: 50},
		{ID: "gold", Label: "Gold", PreviewPercent: 100},
	}}

	if got := p.Lowest(); got != Tier("bronze") {
		t.Errorf("Lowest() = %q, want bronze", got)
	}
	if got := p.Highest(); got != Tier("gold") {
		t.Errorf("Highest() = %q, want gold", got)
	}
}

func TestLowestHighest_SingleTier(t *testing.T) {
	p := &Policy{order: []TierSpec{{ID: "only", Label: "Only"}}}
	if p.Lowest() != "only" || p.Highest() != "only" {
		t.Errorf("single tier: lowest=%q highest=%q", p.Lowest(), p.Highest())
	}
}
