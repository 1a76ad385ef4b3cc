// Package filters implements the pre-authorization decision pipeline: an
// ordered sequence of policy and instrumentation filters evaluated before
// an authorize or device-code-check request reaches the protocol endpoint.
package filters

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/getkayan/authproc/adapters"
	"github.com/getkayan/authproc/config"
	"github.com/getkayan/authproc/domain"
	"github.com/getkayan/authproc/oauth2"
	"github.com/getkayan/authproc/session"
	"github.com/getkayan/authproc/stats"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// Filter is a single unit in the pipeline. Process returns true to let
// the request continue to the next filter (and ultimately the protocol
// endpoint), or false after having fully written the HTTP response
// (typically a redirect). A returned error propagates to the enclosing
// HTTP error handler and aborts the request.
type Filter interface {
	Name() string
	Process(c echo.Context, params *domain.FilterContext) (bool, error)
}

// AssertionSource reads attributes of the upstream identity assertion
// attached to the current request.
type AssertionSource interface {
	AttributeValue(r *http.Request, name string) string
}

// HeaderAssertionSource reads assertion attributes from headers set by
// the authenticating proxy in front of the gateway.
type HeaderAssertionSource struct {
	// Prefix is prepended to attribute names to form header names.
	// Defaults to "X-Assertion-".
	Prefix string
}

func (s HeaderAssertionSource) AttributeValue(r *http.Request, name string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "X-Assertion-"
	}
	return r.Header.Get(prefix + name)
}

// Deps carries the typed collaborator references filter factories may
// need. Each factory picks exactly the fields it uses; collaborators are
// resolved once at pipeline-assembly time.
type Deps struct {
	Adapter    adapters.Adapter
	Clients    oauth2.ClientStore
	Markers    session.MarkerStore
	Sessions   *session.Manager
	Assertions AssertionSource
	DB         *gorm.DB

	// Recorder overrides the database-backed statistics recorder.
	Recorder stats.Recorder

	// Tracer, when set, wraps every filter in a tracing decorator.
	Tracer trace.Tracer

	Issuer      string
	WarningPath string
}

// Factory builds a filter instance from its configuration. Option errors
// are construction errors: the pipeline fails to start instead of
// surfacing a broken filter at request time.
type Factory func(cfg config.FilterConfig, deps Deps) (Filter, error)

// Registry maps filter kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// RegisterFactory registers a factory for a filter kind (e.g.
// "test_service_warning").
func (r *Registry) RegisterFactory(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Build creates one filter instance from a configuration entry.
func (r *Registry) Build(cfg config.FilterConfig, deps Deps) (Filter, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("filters: unknown filter kind %q", cfg.Kind)
	}
	return factory(cfg, deps)
}

// DefaultRegistry returns a registry with the built-in filter kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterFactory(KindTestServiceWarning, NewTestServiceWarningFilter)
	r.RegisterFactory(KindLoginStats, NewLoginStatsFilter)
	return r
}

// BuildAll instantiates the enabled filters in configured order.
func BuildAll(cfgs []config.FilterConfig, reg *Registry, deps Deps) ([]Filter, error) {
	ordered := make([]config.FilterConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.IsEnabled() {
			ordered = append(ordered, cfg)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	built := make([]Filter, 0, len(ordered))
	for _, cfg := range ordered {
		f, err := reg.Build(cfg, deps)
		if err != nil {
			return nil, err
		}
		if deps.Tracer != nil {
			f = NewTraced(f, deps.Tracer)
		}
		built = append(built, f)
	}
	return built, nil
}
