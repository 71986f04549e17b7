package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/auth"
)

type stubVerifier struct {
	tokens map[string]uuid.UUID
}

func (s stubVerifier) Verify(_ context.Context, raw string) (uuid.UUID, error) {
	if id, ok := s.tokens[raw]; ok {
		return id, nil
	}
	return uuid.Nil, auth.ErrInvalidToken
}

func TestMiddleware(t *testing.T) {
	alice := uuid.New()
	v := stubVerifier{tokens: map[string]uuid.UUID{"good": alice}}

	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.User(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	handler := auth.Middleware(v, slog.New(slog.NewTextHandler(io.Discard, nil)))(next)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && seen != alice {
				t.Errorf("user = %v, want %v", seen, alice)
			}
		})
	}
}

func TestUserFromClaims(t *testing.T) {
	id := uuid.New()

	got, err := auth.UserFromClaims(map[string]any{"uid": id.String()}, "uid", "ignored")
	if err != nil || got != id {
		t.Errorf("uid claim: got %v, %v", got, err)
	}

	got, err = auth.UserFromClaims(map[string]any{}, "uid", id.String())
	if err != nil || got != id {
		t.Errorf("subject fallback: got %v, %v", got, err)
	}

	if _, err := auth.UserFromClaims(map[string]any{"uid": "alice"}, "uid", ""); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("non-uuid claim: err = %v, want ErrInvalidToken", err)
	}
}

func TestUserMissing(t *testing.T) {
	if _, ok := auth.User(context.Background()); ok {
		t.Error("empty context should carry no user")
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_ISSUER", "https://idp.example.com")

	cfg := auth.Config{JWKSURL: "https://idp.example.com/keys"}
	if err := cfg.Finalize(&auth.Env{Issuer: "TEST_ISSUER"}); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if cfg.Issuer != "https://idp.example.com" {
		t.Errorf("issuer = %s", cfg.Issuer)
	}
	if cfg.UserClaim != "uid" {
		t.Errorf("user_claim = %s, want uid", cfg.UserClaim)
	}

	empty := auth.Config{}
	if err := empty.Finalize(nil); err == nil {
		t.Error("expected error for missing issuer")
	}
}
