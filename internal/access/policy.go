package access

import (
	"fmt"
	"strings"
)

// Decision is the outcome of gating one body for one reader.
type Decision struct {
	RenderedText  string
	HasFullAccess bool
}

// Policy answers access questions against a fixed tier table. It is
// immutable after NewPolicy and safe for concurrent use.
type Policy struct {
	order   []TierSpec
	rank    map[Tier]int
	percent map[Tier]int
	label   map[Tier]string
	suffix  string
}

// NewPolicy validates the schema and builds a Policy from it.
func NewPolicy(s Schema) (*Policy, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	notice := s.UpgradeNotice
	if notice == "" {
		notice = DefaultUpgradeNotice
	}

	p := &Policy{
		order:   make([]TierSpec, len(s.Tiers)),
		rank:    make(map[Tier]int, len(s.Tiers)),
		percent: make(map[Tier]int, len(s.Tiers)),
		label:   make(map[Tier]string, len(s.Tiers)),
		suffix:  PreviewMarker + notice,
	}
	copy(p.order, s.Tiers)
	for i, t := range s.Tiers {
		p.rank[t.ID] = i
		p.percent[t.ID] = t.PreviewPercent
		p.label[t.ID] = t.Label
	}
	return p, nil
}

// MustPolicy is NewPolicy for schemas known to be valid, such as
// DefaultSchema in tests and seeds.
func MustPolicy(s Schema) *Policy {
	p, err := NewPolicy(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Rank returns the ordinal position of t, lowest tier first.
func (p *Policy) Rank(t Tier) (int, error) {
	r, ok := p.rank[t]
	if !ok {
		return 0, &InvalidTierError{Tier: t}
	}
	return r, nil
}

// CanAccess reports whether requester ranks at or above required.
func (p *Policy) CanAccess(requester, required Tier) (bool, error) {
	have, err := p.Rank(requester)
	if err != nil {
		return false, err
	}
	need, err := p.Rank(required)
	if err != nil {
		return false, err
	}
	return have >= need, nil
}

// PreviewPercentage returns the share of a locked body t may preview.
func (p *Policy) PreviewPercentage(t Tier) (int, error) {
	pct, ok := p.percent[t]
	if !ok {
		return 0, &InvalidTierError{Tier: t}
	}
	return pct, nil
}

// Label returns the display name of t.
func (p *Policy) Label(t Tier) (string, error) {
	l, ok := p.label[t]
	if !ok {
		return "", &InvalidTierError{Tier: t}
	}
	return l, nil
}

// GetAccessibleContent returns the body untouched when requester may read it,
// and otherwise the leading share of its space-separated words followed by
// the preview suffix.
func (p *Policy) GetAccessibleContent(body string, requester, required Tier) (Decision, error) {
	ok, err := p.CanAccess(requester, required)
	if err != nil {
		return Decision{}, err
	}
	if ok {
		return Decision{RenderedText: body, HasFullAccess: true}, nil
	}

	pct, err := p.PreviewPercentage(requester)
	if err != nil {
		return Decision{}, err
	}

	// Only literal spaces separate words; runs of spaces yield empty tokens.
	var words []string
	if body != "" {
		words = strings.Split(body, " ")
	}
	n := len(words) * pct / 100

	return Decision{
		RenderedText:  strings.Join(words[:n], " ") + p.suffix,
		HasFullAccess: false,
	}, nil
}

// UpgradeMessage is empty when requester can read the content and otherwise
// names the tier that unlocks it.
func (p *Policy) UpgradeMessage(requester, required Tier) (string, error) {
	ok, err := p.CanAccess(requester, required)
	if err != nil {
		return "", err
	}
	if ok {
		return "", nil
	}
	label, err := p.Label(required)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Upgrade to %s to unlock this content.", label), nil
}

// Suffix is the text appended to every preview.
func (p *Policy) Suffix() string {
	return p.suffix
}

// Tiers returns the tier table, lowest first.
func (p *Policy) Tiers() []TierSpec {
	out := make([]TierSpec, len(p.order))
	copy(out, p.order)
	return out
}

// Lowest is the tier granted to anonymous readers and lapsed subscribers.
func (p *Policy) Lowest() Tier {
	return p.order[0].ID
}

// Highest is the top of the table.
func (p *Policy) Highest() Tier {
	return p.order[len(p.order)-1].ID
}

// Valid reports whether t is part of the table.
func (p *Policy) Valid(t Tier) bool {
	_, ok := p.rank[t]
	return ok
}

// ParseTier normalises s and checks it against the table.
func (p *Policy) ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid(t) {
		return "", &InvalidTierError{Tier: t}
	}
	return t, nil
}
