package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Middleware authenticates requests and checks the route's permission
// against the caller's role.
type Middleware struct {
	verifier *Verifier
	policy   Policy
}

// NewMiddleware constructs the auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{verifier: &Verifier{secret: secret}, policy: policy}
}

// Wrap guards the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.policy.Open(r) {
			next.ServeHTTP(w, r)
			return
		}

		id, err := m.verifier.Verify(bearerToken(r))
		if err != nil {
			writeDenied(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !id.Role.Allows(m.policy.Required(r)) {
			writeDenied(w, http.StatusForbidden, "forbidden")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func writeDenied(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
