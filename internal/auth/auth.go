// Package auth maps bearer credentials to identities. Token issuance is out
// of scope; this side only verifies.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Role string

const (
	RoleConsumer Role = "consumer"
	RoleMerchant Role = "merchant"
	RoleAdmin    Role = "admin"
)

var ErrInvalidCredential = errors.New("invalid credential")

// Identity is the resolved actor of a request.
type Identity struct {
	ID   uuid.UUID
	Role Role
}

// Service verifies HS256 tokens with claims {sub, role, exp}.
type Service struct {
	secret []byte
	logger apt.Logger
}

func NewService(secret string, logger apt.Logger) *Service {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Service{secret: []byte(secret), logger: logger}
}

// ResolveIdentity parses and verifies credential and returns the identity it
// names.
func (s *Service) ResolveIdentity(credential string) (*Identity, error) {
	parsed, err := jwt.Parse(credential, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidCredential
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidCredential
	}

	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	roleName, _ := claims["role"].(string)
	role := Role(roleName)
	switch role {
	case RoleConsumer, RoleMerchant, RoleAdmin:
	default:
		return nil, ErrInvalidCredential
	}

	return &Identity{ID: id, Role: role}, nil
}

type ctxKey struct{}

// WithIdentity stores the identity in the context.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, ident)
}

// IdentityFrom retrieves the identity a middleware stored, if any.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	ident, ok := ctx.Value(ctxKey{}).(*Identity)
	return ident, ok
}

// Middleware resolves the request credential and stashes the identity in the
// request context. Requests without a valid credential are rejected with
// 401. The credential comes from the Authorization header, or from a token
// query parameter for EventSource clients that cannot set headers.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		credential := bearerToken(r)
		if credential == "" {
			credential = r.URL.Query().Get("token")
		}
		if credential == "" {
			apt.RespondError(w, http.StatusUnauthorized, "Missing credential")
			return
		}

		ident, err := s.ResolveIdentity(credential)
		if err != nil {
			s.logger.Debug("credential rejected", "error", err)
			apt.RespondError(w, http.StatusUnauthorized, "Invalid credential")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
