package apiv1

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"venux-billing/internal/domain"
	"venux-billing/internal/usecase"
)

// SupabaseClaims is the subset of a Supabase access token the API reads.
type SupabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates Supabase-issued HS256 access tokens.
type TokenVerifier struct {
	secret   []byte
	audience string
}

func NewTokenVerifier(secret, audience string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), audience: audience}
}

// Verify returns the caller behind tok.
func (v *TokenVerifier) Verify(tok string) (usecase.Caller, error) {
	claims := &SupabaseClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return usecase.Caller{}, domain.ErrUnauthorized
	}
	if claims.Subject == "" {
		return usecase.Caller{}, domain.ErrUnauthorized
	}
	return usecase.Caller{UserID: claims.Subject, Email: claims.Email}, nil
}

type callerKey struct{}

// CallerFrom returns the authenticated caller stored by requireUser.
func CallerFrom(ctx context.Context) (usecase.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(usecase.Caller)
	return c, ok
}

func withCaller(ctx context.Context, c usecase.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func bearerToken(r *http.Request) (string, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return "", errors.New("missing token")
	}
	tok := strings.TrimSpace(hdr[7:])
	if tok == "" {
		return "", errors.New("missing token")
	}
	return tok, nil
}
