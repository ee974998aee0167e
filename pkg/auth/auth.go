// Package auth verifies bearer tokens guarding administrative routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"github.com/JaimeStill/lectern/pkg/handlers"
)

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrForbiddenRole = errors.New("token role not permitted")
)

// Claims are the token claims made available to downstream handlers.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates a raw bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

// New creates the Verifier for cfg. ModeNone returns a nil Verifier.
func New(cfg *Config) (Verifier, error) {
	switch cfg.Mode {
	case ModeNone, "":
		return nil, nil
	case ModeSecret:
		return newSecretVerifier(cfg), nil
	case ModeOIDC:
		return newOIDCVerifier(cfg), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

type secretVerifier struct {
	secret []byte
	role   string
	parser *jwt.Parser
}

func newSecretVerifier(cfg *Config) *secretVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &secretVerifier{
		secret: []byte(cfg.Secret),
		role:   cfg.Role,
		parser: jwt.NewParser(opts...),
	}
}

func (v *secretVerifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, checkRole(claims, v.role)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
	role     string
}

// newOIDCVerifier fetches signing keys lazily on first verification.
func newOIDCVerifier(cfg *Config) *oidcVerifier {
	keys := oidc.NewRemoteKeySet(context.Background(), cfg.JWKSURL)

	return &oidcVerifier{
		verifier: oidc.NewVerifier(cfg.Issuer, keys, &oidc.Config{
			ClientID:          cfg.Audience,
			SkipClientIDCheck: cfg.Audience == "",
		}),
		role: cfg.Role,
	}
}

func (v *oidcVerifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims := &Claims{}
	if err := token.Claims(claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, checkRole(claims, v.role)
}

func checkRole(claims *Claims, role string) error {
	if role != "" && claims.Role != role {
		return fmt.Errorf("%w: %q", ErrForbiddenRole, claims.Role)
	}
	return nil
}

type claimsKey struct{}

// ClaimsFromContext returns the verified claims stored by Require, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

// Require returns middleware that rejects requests without a valid bearer
// token with 401. A nil Verifier returns nil: no middleware is applied.
func Require(v Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if v == nil {
		return nil
	}
	logger = logger.With("middleware", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrMissingToken)
				return
			}

			claims, err := v.Verify(r.Context(), raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				handlers.RespondError(w, logger, http.StatusUnauthorized, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
