// Package access decides how much of a prompt body a reader may see.
//
// Tiers are ordered by their position in a Schema. A reader whose tier ranks
// at or above the tier a prompt requires gets the body unchanged; anyone else
// gets a word-truncated preview sized by their own tier.
package access

import (
	"fmt"
	"strings"
)

// Tier identifies a subscription level. Valid values are whatever the loaded
// Schema lists; the constants below cover the identifiers shipped in config/.
type Tier string

const (
	TierFree      Tier = "free"
	TierExplorer  Tier = "explorer"
	TierArchitect Tier = "architect"
	TierInitiate  Tier = "initiate"
	TierElite     Tier = "elite"
	TierMaster    Tier = "master"
)

// DefaultUpgradeNotice is appended after the preview marker when a schema
// does not set its own.
const DefaultUpgradeNotice = "[Upgrade your subscription to unlock the full content]"

// PreviewMarker separates truncated text from the upgrade notice.
const PreviewMarker = "...\n\n"

// TierSpec is one row of the tier table.
type TierSpec struct {
	ID             Tier   `yaml:"id" json:"id"`
	Label          string `yaml:"label" json:"label"`
	PreviewPercent int    `yaml:"preview_percent" json:"preview_percent"`
}

// Schema is the business configuration behind a Policy. Tiers are listed
// lowest first.
type Schema struct {
	UpgradeNotice string     `yaml:"upgrade_notice,omitempty"`
	Tiers         []TierSpec `yaml:"tiers"`
}

// DefaultSchema returns the four-tier table used when no tier file is
// configured.
func DefaultSchema() Schema {
	return Schema{
		UpgradeNotice: DefaultUpgradeNotice,
		Tiers: []TierSpec{
			{ID: TierFree, Label: "Free", PreviewPercent: 10},
			{ID: TierArchitect, Label: "Architect", PreviewPercent: 40},
			{ID: TierInitiate, Label: "Initiate", PreviewPercent: 70},
			{ID: TierElite, Label: "Elite", PreviewPercent: 100},
		},
	}
}

// Validate reports the first structural problem in the schema.
func (s Schema) Validate() error {
	if len(s.Tiers) == 0 {
		return &SchemaError{Reason: "no tiers defined"}
	}
	seen := make(map[Tier]bool, len(s.Tiers))
	for i, t := range s.Tiers {
		if strings.TrimSpace(string(t.ID)) == "" {
			return &SchemaError{Reason: fmt.Sprintf("tier %d has an empty id", i)}
		}
		if seen[t.ID] {
			return &SchemaError{Tier: t.ID, Reason: "duplicate tier id"}
		}
		seen[t.ID] = true
		if strings.TrimSpace(t.Label) == "" {
			return &SchemaError{Tier: t.ID, Reason: "label is required"}
		}
		if t.PreviewPercent < 0 || t.PreviewPercent > 100 {
			return &SchemaError{Tier: t.ID, Reason: fmt.Sprintf("preview_percent %d outside [0,100]", t.PreviewPercent)}
		}
	}
	return nil
}

// InvalidTierError is returned for a tier identifier outside the configured
// set. It signals a caller or configuration bug and is never mapped to a
// default tier.
type InvalidTierError struct {
	Tier Tier
}

func (e *InvalidTierError) Error() string {
	return fmt.Sprintf("invalid tier %q", string(e.Tier))
}

// SchemaError indicates a tier table that cannot back a Policy.
type SchemaError struct {
	Tier   Tier
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Tier != "" {
		return fmt.Sprintf("tier schema: %s: %s", e.Tier, e.Reason)
	}
	return "tier schema: " + e.Reason
}
