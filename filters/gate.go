package filters

import (
	"net/http"
	"strings"
)

// Gate decides whether a request enters the pipeline at all. It matches
// the authorize endpoint and the device-code-check endpoint, each with
// their sub-paths. It is a pure predicate and must run before any context
// resolution so unrelated traffic costs no lookups.
type Gate struct {
	prefixes []string
}

// NewGate builds a gate matching the given endpoint paths and their
// sub-paths.
func NewGate(paths ...string) *Gate {
	g := &Gate{}
	for _, p := range paths {
		p = strings.TrimSuffix(p, "/")
		if p != "" {
			g.prefixes = append(g.prefixes, p)
		}
	}
	return g
}

// Matches reports whether the request path is one of the gated endpoints
// or a sub-path of one.
func (g *Gate) Matches(r *http.Request) bool {
	path := r.URL.Path
	for _, p := range g.prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
