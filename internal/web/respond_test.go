package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/acgh213/promptvault/internal/access"
	"github.com/acgh213/promptvault/internal/prompts"
)

func TestWriteFailure_Mapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", prompts.ErrNotFound, http.StatusNotFound, "not_found"},
		{"wrapped not found", fmt.Errorf("load: %w", prompts.ErrNotFound), http.StatusNotFound, "not_found"},
		{"slug conflict", prompts.ErrSlugConflict, http.StatusConflict, "slug_conflict"},
		{"edit conflict", prompts.ErrConflict, http.StatusConflict, "edit_conflict"},
		{"validation", &prompts.ValidationError{Fields: map[string]string{"title": "is required"}}, http.StatusBadRequest, "validation_failed"},
		{"invalid tier", &access.InvalidTierError{Tier: "gold"}, http.StatusInternalServerError, "invalid_tier"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/api/prompts/x", nil)
			writeFailure(rr, req, tc.err, "load prompt")

			if rr.Code != tc.status {
				t.Errorf("status = %d, want %d", rr.Code, tc.status)
			}
			var body errorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tc.code {
				t.Errorf("code = %q, want %q", body.Error, tc.code)
			}
		})
	}
}

func TestWriteFailure_ValidationFields(t *testing.T) {
	rr := httptest.NewRecorder()
	err := &prompts.ValidationError{Fields: map[string]string{"required_tier": "unknown tier"}}
	writeFailure(rr, httptest.NewRequest("POST", "/api/prompts", nil), err, "validate prompt")

	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Fields["required_tier"] != "unknown tier" {
		t.Errorf("fields = %v", body.Fields)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.c"}`))
	if !decodeJSON(rr, req, &dst) || dst.Email != "a@b.c" {
		t.Fatalf("valid body rejected: %d %s", rr.Code, rr.Body.String())
	}

	for _, body := range []string{"", "{", `{"email":"a","extra":1}`} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))
		if decodeJSON(rr, req, &dst) {
			t.Errorf("body %q accepted", body)
		}
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: status %d", body, rr.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:4321"
	if got := clientIP(req); got != "203.0.113.7" {
		t.Errorf("clientIP = %q", got)
	}
	req.RemoteAddr = "203.0.113.8"
	if got := clientIP(req); got != "203.0.113.8" {
		t.Errorf("clientIP without port = %q", got)
	}
}

func TestCSRFProtect(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := csrfProtect(true)(ok)

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest("GET", "/", nil))
	token := get.Header().Get(CSRFHeader)
	if token == "" {
		t.Fatal("no CSRF token header on GET")
	}

	// Missing token.
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Origin", "http://example.com")
	for _, c := range get.Result().Cookies() {
		req.AddCookie(c)
	}
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("POST without token: got %d, want 403", rr.Code)
	}

	// Valid token.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set(CSRFHeader, token)
	for _, c := range get.Result().Cookies() {
		req.AddCookie(c)
	}
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("POST with token: got %d, want 200", rr.Code)
	}
}
