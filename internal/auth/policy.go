package auth

import (
	"net/http"
	"strings"
)

// Policy maps request paths to the permission they require. Open paths
// skip authentication entirely; anything not recognized requires the
// admin-only site management permission.
type Policy struct {
	openPaths    map[string]struct{}
	openPrefixes []string
}

// NewDefaultPolicy builds the route policy with the given open paths
// and path prefixes.
func NewDefaultPolicy(openPaths, openPrefixes []string) Policy {
	set := make(map[string]struct{}, len(openPaths))
	for _, path := range openPaths {
		set[path] = struct{}{}
	}
	return Policy{openPaths: set, openPrefixes: openPrefixes}
}

// Open reports whether the request skips authentication.
func (p Policy) Open(r *http.Request) bool {
	if r == nil {
		return false
	}
	if _, ok := p.openPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.openPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// Required resolves the permission the request needs.
func (p Policy) Required(r *http.Request) Permission {
	path := r.URL.Path

	if path == "/ingest/readings" || strings.HasPrefix(path, "/ingest/") {
		return PermPushReadings
	}
	if strings.HasPrefix(path, "/api/") {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return PermReadLedger
		}
	}
	return PermManageSite
}
