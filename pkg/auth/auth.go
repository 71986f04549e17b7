// Package auth verifies bearer tokens and carries the authenticated user id
// through the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/handlers"
)

var (
	// ErrMissingToken indicates the request carried no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken indicates the token failed verification or lacks a user id.
	ErrInvalidToken = errors.New("invalid bearer token")
)

type contextKey struct{}

// Verifier resolves a raw bearer token to the id of the user it was issued for.
type Verifier interface {
	Verify(ctx context.Context, raw string) (uuid.UUID, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
	claim    string
}

// NewVerifier creates a Verifier that checks token signatures against the issuer's
// JWKS endpoint. Keys are fetched lazily and cached by go-oidc.
func NewVerifier(ctx context.Context, cfg *Config) Verifier {
	keySet := oidc.NewRemoteKeySet(ctx, cfg.JWKSURL)

	return &oidcVerifier{
		verifier: oidc.NewVerifier(cfg.Issuer, keySet, &oidc.Config{
			ClientID:          cfg.Audience,
			SkipClientIDCheck: cfg.Audience == "",
		}),
		claim: cfg.UserClaim,
	}
}

func (v *oidcVerifier) Verify(ctx context.Context, raw string) (uuid.UUID, error) {
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return UserFromClaims(claims, v.claim, token.Subject)
}

// UserFromClaims extracts the user id from claim, falling back to subject.
func UserFromClaims(claims map[string]any, claim, subject string) (uuid.UUID, error) {
	raw, _ := claims[claim].(string)
	if raw == "" {
		raw = subject
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: user claim %q is not a uuid", ErrInvalidToken, claim)
	}
	return id, nil
}

// Middleware rejects requests without a verifiable bearer token with 401 and
// stores the user id in the request context otherwise.
func Middleware(v Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("middleware", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrMissingToken)
				return
			}

			id, err := v.Verify(r.Context(), raw)
			if err != nil {
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), id)))
		})
	}
}

// WithUser returns a copy of ctx carrying the user id.
func WithUser(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// User returns the authenticated user id stored in ctx.
func User(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(contextKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
