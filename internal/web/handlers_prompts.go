package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/acgh213/promptvault/internal/access"
	"github.com/acgh213/promptvault/internal/audit"
	"github.com/acgh213/promptvault/internal/auth"
	"github.com/acgh213/promptvault/internal/pagination"
	"github.com/acgh213/promptvault/internal/prompts"
)

type authorJSON struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type promptSummaryJSON struct {
	ID             uuid.UUID   `json:"id"`
	Slug           string      `json:"slug"`
	Title          string      `json:"title"`
	Summary        string      `json:"summary"`
	Category       string      `json:"category"`
	RequiredTier   access.Tier `json:"required_tier"`
	Locked         bool        `json:"locked"`
	UpgradeMessage string      `json:"upgrade_message,omitempty"`
	Author         *authorJSON `json:"author,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type promptViewJSON struct {
	ID                uuid.UUID   `json:"id"`
	Slug              string      `json:"slug"`
	Title             string      `json:"title"`
	Summary           string      `json:"summary"`
	Category          string      `json:"category"`
	RequiredTier      access.Tier `json:"required_tier"`
	ViewerTier        access.Tier `json:"viewer_tier"`
	Content           string      `json:"content"`
	ContentHTML       string      `json:"content_html"`
	HasFullAccess     bool        `json:"has_full_access"`
	UpgradeMessage    string      `json:"upgrade_message,omitempty"`
	Variables         []string    `json:"variables,omitempty"`
	CurrentRevisionID *uuid.UUID  `json:"current_revision_id,omitempty"`
	Author            *authorJSON `json:"author,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

type promptListJSON struct {
	Items      []promptSummaryJSON `json:"items"`
	Page       pagination.Meta     `json:"page"`
	ViewerTier access.Tier         `json:"viewer_tier"`
}

type promptRequest struct {
	Slug           string `json:"slug"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	Category       string `json:"category"`
	Body           string `json:"body"`
	RequiredTier   string `json:"required_tier"`
	Message        string `json:"message"`
	BaseRevisionID string `json:"base_revision_id"`
}

func (p promptRequest) draft() prompts.Draft {
	return prompts.Draft{
		Slug:         p.Slug,
		Title:        p.Title,
		Summary:      p.Summary,
		Category:     p.Category,
		Body:         p.Body,
		RequiredTier: p.RequiredTier,
	}
}

func toAuthorJSON(u *prompts.UserInfo) *authorJSON {
	if u == nil {
		return nil
	}
	return &authorJSON{ID: u.ID, Name: u.Name}
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := prompts.Filter{
		Category: strings.ToLower(strings.TrimSpace(q.Get("category"))),
		Query:    strings.TrimSpace(q.Get("q")),
	}
	if raw := q.Get("tier"); raw != "" {
		tier, err := s.policy.ParseTier(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		filter.RequiredTier = tier
	}

	viewer, err := s.viewerTier(ctx)
	if err != nil {
		writeFailure(w, r, err, "resolve tier")
		return
	}

	page := pagination.FromRequest(r, pagination.DefaultPerPage)
	total, err := s.prompts.Count(ctx, filter)
	if err != nil {
		writeFailure(w, r, err, "count prompts")
		return
	}
	page.Apply(total)

	list, err := s.prompts.List(ctx, filter, page.Limit(), page.Offset())
	if err != nil {
		writeFailure(w, r, err, "list prompts")
		return
	}

	items := make([]promptSummaryJSON, 0, len(list))
	for _, p := range list {
		ok, err := s.policy.CanAccess(viewer, p.RequiredTier)
		if err != nil {
			writeFailure(w, r, err, "check access")
			return
		}
		msg, err := s.policy.UpgradeMessage(viewer, p.RequiredTier)
		if err != nil {
			writeFailure(w, r, err, "check access")
			return
		}
		items = append(items, promptSummaryJSON{
			ID:             p.ID,
			Slug:           p.Slug,
			Title:          p.Title,
			Summary:        p.Summary,
			Category:       p.Category,
			RequiredTier:   p.RequiredTier,
			Locked:         !ok,
			UpgradeMessage: msg,
			Author:         toAuthorJSON(p.Author),
			UpdatedAt:      p.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, promptListJSON{
		Items:      items,
		Page:       page.Meta(r),
		ViewerTier: viewer,
	})
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "prompt not found")
		return
	}
	p, err := s.prompts.GetByID(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err, "load prompt")
		return
	}
	s.writePromptView(w, r, p)
}

func (s *Server) handleGetPromptBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := s.prompts.GetBySlug(r.Context(), prompts.NormalizeSlug(chi.URLParam(r, "slug")))
	if err != nil {
		writeFailure(w, r, err, "load prompt")
		return
	}
	s.writePromptView(w, r, p)
}

func (s *Server) writePromptView(w http.ResponseWriter, r *http.Request, p *prompts.Prompt) {
	s.writePromptViewStatus(w, r, p, http.StatusOK)
}

// writePromptViewStatus gates the body against the viewer's tier before
// anything derived from it leaves the server.
func (s *Server) writePromptViewStatus(w http.ResponseWriter, r *http.Request, p *prompts.Prompt, status int) {
	viewer, err := s.viewerTier(r.Context())
	if err != nil {
		writeFailure(w, r, err, "resolve tier")
		return
	}

	decision, err := s.policy.GetAccessibleContent(p.Body, viewer, p.RequiredTier)
	if err != nil {
		writeFailure(w, r, err, "gate content")
		return
	}
	msg, err := s.policy.UpgradeMessage(viewer, p.RequiredTier)
	if err != nil {
		writeFailure(w, r, err, "gate content")
		return
	}

	html, err := s.markdown.Render(decision.RenderedText)
	if err != nil {
		writeFailure(w, r, err, "render prompt")
		return
	}

	view := promptViewJSON{
		ID:             p.ID,
		Slug:           p.Slug,
		Title:          p.Title,
		Summary:        p.Summary,
		Category:       p.Category,
		RequiredTier:   p.RequiredTier,
		ViewerTier:     viewer,
		Content:        decision.RenderedText,
		ContentHTML:    html,
		HasFullAccess:  decision.HasFullAccess,
		UpgradeMessage: msg,
		Author:         toAuthorJSON(p.Author),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if decision.HasFullAccess {
		view.Variables = prompts.Placeholders(p.Body)
		view.CurrentRevisionID = p.CurrentRevisionID
	}
	writeJSON(w, status, view)
}

func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.UserFromContext(ctx)

	var req promptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, tier, err := req.draft().Clean(s.policy)
	if err != nil {
		writeFailure(w, r, err, "validate prompt")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		message = "Initial version"
	}

	p, err := s.prompts.Create(ctx, prompts.CreateInput{
		Slug:         d.Slug,
		Title:        d.Title,
		Summary:      d.Summary,
		Category:     d.Category,
		Body:         d.Body,
		RequiredTier: tier,
		CreatedBy:    user.ID,
		Message:      message,
	})
	if err != nil {
		writeFailure(w, r, err, "create prompt")
		return
	}

	_ = s.audit.Log(ctx, audit.Entry{
		ActorUserID: &user.ID,
		Action:      audit.ActionPromptCreate,
		TargetType:  audit.TargetPrompt,
		TargetID:    &p.ID,
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
		Metadata:    map[string]any{"slug": p.Slug, "required_tier": string(p.RequiredTier)},
	})

	w.Header().Set("Location", "/api/prompts/"+p.ID.String())
	s.writePromptViewStatus(w, r, p, http.StatusCreated)
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.UserFromContext(ctx)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "prompt not found")
		return
	}

	var req promptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, tier, err := req.draft().Clean(s.policy)
	if err != nil {
		writeFailure(w, r, err, "validate prompt")
		return
	}

	var base uuid.UUID
	if req.BaseRevisionID != "" {
		base, err = uuid.Parse(req.BaseRevisionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid base_revision_id")
			return
		}
	}

	p, err := s.prompts.Update(ctx, id, prompts.UpdateInput{
		Title:          d.Title,
		Summary:        d.Summary,
		Category:       d.Category,
		Body:           d.Body,
		RequiredTier:   tier,
		Message:        strings.TrimSpace(req.Message),
		BaseRevisionID: base,
		UpdatedBy:      user.ID,
	})
	if err != nil {
		writeFailure(w, r, err, "update prompt")
		return
	}

	_ = s.audit.Log(ctx, audit.Entry{
		ActorUserID: &user.ID,
		Action:      audit.ActionPromptUpdate,
		TargetType:  audit.TargetPrompt,
		TargetID:    &p.ID,
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
		Metadata:    map[string]any{"required_tier": string(p.RequiredTier)},
	})

	s.writePromptView(w, r, p)
}

func (s *Server) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.UserFromContext(ctx)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "prompt not found")
		return
	}
	if err := s.prompts.Delete(ctx, id); err != nil {
		writeFailure(w, r, err, "delete prompt")
		return
	}

	_ = s.audit.Log(ctx, audit.Entry{
		ActorUserID: &user.ID,
		Action:      audit.ActionPromptDelete,
		TargetType:  audit.TargetPrompt,
		TargetID:    &id,
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
	})
	w.WriteHeader(http.StatusNoContent)
}

type revisionJSON struct {
	ID        uuid.UUID   `json:"id"`
	Message   string      `json:"message"`
	Body      string      `json:"body"`
	Author    *authorJSON `json:"author,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "prompt not found")
		return
	}
	if _, err := s.prompts.GetByID(ctx, id); err != nil {
		writeFailure(w, r, err, "load prompt")
		return
	}

	revisions, err := s.prompts.ListRevisions(ctx, id)
	if err != nil {
		writeFailure(w, r, err, "list revisions")
		return
	}

	page := pagination.FromRequest(r, pagination.RevisionsPerPage)
	window := pagination.ApplyToSlice(&page, revisions)

	items := make([]revisionJSON, 0, len(window))
	for _, rev := range window {
		items = append(items, revisionJSON{
			ID:        rev.ID,
			Message:   rev.Message,
			Body:      rev.Body,
			Author:    toAuthorJSON(rev.Author),
			CreatedAt: rev.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"page":  page.Meta(r),
	})
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "prompt not found")
		return
	}
	p, err := s.prompts.GetByID(ctx, id)
	if err != nil {
		writeFailure(w, r, err, "load prompt")
		return
	}

	fromID, err := uuid.Parse(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid from revision id")
		return
	}
	// to defaults to the current revision.
	var toID uuid.UUID
	if raw := r.URL.Query().Get("to"); raw != "" {
		if toID, err = uuid.Parse(raw); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid to revision id")
			return
		}
	} else if p.CurrentRevisionID != nil {
		toID = *p.CurrentRevisionID
	}

	fromRev, err := s.prompts.GetRevision(ctx, id, fromID)
	if err != nil {
		writeRevisionError(w, err, "from")
		return
	}
	toRev, err := s.prompts.GetRevision(ctx, id, toID)
	if err != nil {
		writeRevisionError(w, err, "to")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"from": fromRev.ID,
		"to":   toRev.ID,
		"diff": prompts.ComputeDiff(fromRev.Body, toRev.Body),
	})
}

func writeRevisionError(w http.ResponseWriter, err error, side string) {
	if errors.Is(err, prompts.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", side+" revision not found")
		return
	}
	slog.Error("failed to load revision", "error", err, "side", side)
	writeError(w, http.StatusInternalServerError, "internal_error", "failed to load revision")
}
