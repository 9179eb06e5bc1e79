package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Identity is who the request is acting as.
type Identity struct {
	UserId string
	Roles  []string
}

// IdentityProvider resolves the caller of a request. Implementations sit in
// front of whatever auth the deployment uses.
type IdentityProvider interface {
	Identify(r *http.Request) (*Identity, error)
}

type identityKey struct{}

func IdentityFrom(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.options.Identity.Identify(r)
		if err != nil || identity == nil || len(identity.UserId) == 0 {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HeaderIdentityProvider trusts identity headers set by an upstream gateway.
type HeaderIdentityProvider struct {
	UserHeader  string
	RolesHeader string
}

func (p *HeaderIdentityProvider) Identify(r *http.Request) (*Identity, error) {
	userHeader := p.UserHeader
	if len(userHeader) == 0 {
		userHeader = "X-User-Id"
	}

	rolesHeader := p.RolesHeader
	if len(rolesHeader) == 0 {
		rolesHeader = "X-User-Roles"
	}

	userId := r.Header.Get(userHeader)
	if len(userId) == 0 {
		return nil, nil
	}

	var roles []string
	for _, role := range strings.Split(r.Header.Get(rolesHeader), ",") {
		if role = strings.TrimSpace(role); len(role) > 0 {
			roles = append(roles, role)
		}
	}

	return &Identity{UserId: userId, Roles: roles}, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
