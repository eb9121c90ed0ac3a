package jwt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles carried in session tokens.
const (
	RolePassenger = "passenger"
	RoleDriver    = "driver"
)

// TokenTTL is the lifetime of an issued session token.
const TokenTTL = 24 * time.Hour

// Claims represents the JWT payload.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	gojwt.RegisteredClaims
}

// Session is the signed-in identity of one request. Handlers read it once
// and pass it explicitly to services.
type Session struct {
	UserID    string
	Email     string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// RevocationCheck reports whether a token id has been signed out.
type RevocationCheck func(ctx context.Context, tokenID string) (bool, error)

type ctxKey string

const sessionCtxKey ctxKey = "session"

var (
	secret    []byte
	isRevoked RevocationCheck
)

// ErrRevoked is returned by Authenticate for a signed-out token.
var ErrRevoked = errors.New("token revoked")

// Init must be called once at startup with the JWT_SECRET value.
func Init(s string) error {
	if s == "" {
		return errors.New("JWT_SECRET is required")
	}
	secret = []byte(s)
	return nil
}

// SetRevocationCheck installs the lookup used to reject signed-out tokens.
func SetRevocationCheck(fn RevocationCheck) { isRevoked = fn }

// Generate creates a signed session token for the given user.
func Generate(userID, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(secret)
}

// Validate parses and validates a raw JWT string.
func Validate(raw string) (*Claims, error) {
	token, err := gojwt.ParseWithClaims(raw, &Claims{}, func(t *gojwt.Token) (any, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Authenticate validates raw and checks it has not been signed out.
func Authenticate(ctx context.Context, raw string) (Session, error) {
	claims, err := Validate(raw)
	if err != nil {
		return Session{}, err
	}
	if isRevoked != nil {
		revoked, err := isRevoked(ctx, claims.ID)
		if err != nil {
			return Session{}, fmt.Errorf("revocation lookup: %w", err)
		}
		if revoked {
			return Session{}, ErrRevoked
		}
	}
	s := Session{
		UserID:  claims.UserID,
		Email:   claims.Email,
		Role:    claims.Role,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// SessionFrom retrieves the session placed in ctx by OptionalAuth.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionCtxKey).(Session)
	return s, ok
}

// BearerToken extracts the token from an Authorization header, falling back
// to the "token" query parameter used by browser WebSocket clients.
func BearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return auth[7:]
	}
	return r.URL.Query().Get("token")
}

// ---- HTTP Middleware ----

// OptionalAuth places the session in context if a valid token is present.
// Requests without one pass through signed out.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := BearerToken(r); raw != "" {
			s, err := Authenticate(r.Context(), raw)
			switch {
			case err == nil:
				r = r.WithContext(WithSession(r.Context(), s))
			case !errors.Is(err, ErrRevoked):
				log.Printf("[auth] rejected token: %v", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests that have no session in context.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFrom(r.Context()); !ok {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects signed-in requests whose role differs from role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, _ := SessionFrom(r.Context())
			if s.Role != role {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
