package web

import (
	"net/http"

	"github.com/acgh213/promptvault/internal/access"
)

type tierJSON struct {
	ID             access.Tier `json:"id"`
	Label          string      `json:"label"`
	PreviewPercent int         `json:"preview_percent"`
	Rank           int         `json:"rank"`
}

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	specs := s.policy.Tiers()
	out := make([]tierJSON, 0, len(specs))
	for i, t := range specs {
		out = append(out, tierJSON{
			ID:             t.ID,
			Label:          t.Label,
			PreviewPercent: t.PreviewPercent,
			Rank:           i,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tiers":          out,
		"preview_suffix": s.policy.Suffix(),
	})
}
