package filters

import (
	"github.com/getkayan/authproc/domain"
	"github.com/getkayan/authproc/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Pipeline runs the configured filters, in order, against gated requests.
// Filters for one request execute strictly sequentially; the first filter
// returning false stops the pipeline, and that filter has already written
// the response.
type Pipeline struct {
	gate     *Gate
	resolver *Resolver
	filters  []Filter
}

func NewPipeline(gate *Gate, resolver *Resolver, filters []Filter) *Pipeline {
	return &Pipeline{gate: gate, resolver: resolver, filters: filters}
}

// Run executes the filters against an already-resolved context. It
// returns false as soon as a filter stops the pipeline.
func (p *Pipeline) Run(c echo.Context, params *domain.FilterContext) (bool, error) {
	for _, f := range p.filters {
		cont, err := f.Process(c, params)
		if err != nil {
			return false, err
		}
		if !cont {
			logger.Log.Debug("filter stopped the pipeline", zap.String("filter", f.Name()))
			return false, nil
		}
	}
	return true, nil
}

// Middleware gates, resolves and runs the pipeline in front of the
// protocol endpoint. Non-matching requests and empty pipelines pass
// through untouched, without any context resolution.
func (p *Pipeline) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !p.gate.Matches(req) {
				logger.Log.Debug("pipeline skipped, request did not match gated endpoints",
					zap.String("path", req.URL.Path))
				return next(c)
			}
			if len(p.filters) == 0 {
				return next(c)
			}

			params := p.resolver.Resolve(req.Context(), req)
			cont, err := p.Run(c, params)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
			return next(c)
		}
	}
}
