package filters

import (
	"github.com/getkayan/authproc/domain"
	"github.com/getkayan/authproc/logger"
	"github.com/getkayan/authproc/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SessionOnce decorates a filter so it fires at most once per explicit
// user acknowledgment within a browser session. Before delegating it
// consumes the session marker keyed by the wrapped filter's name: a
// present marker grants exactly one bypass and is cleared by the check
// itself. The marker's only writer is the warning-page controller.
type SessionOnce struct {
	next     Filter
	markers  session.MarkerStore
	sessions *session.Manager
}

func NewSessionOnce(next Filter, markers session.MarkerStore, sessions *session.Manager) *SessionOnce {
	return &SessionOnce{next: next, markers: markers, sessions: sessions}
}

func (s *SessionOnce) Name() string { return s.next.Name() }

func (s *SessionOnce) Process(c echo.Context, params *domain.FilterContext) (bool, error) {
	sid := s.sessions.SessionID(c)
	consumed, err := s.markers.Consume(c.Request().Context(), sid, s.next.Name())
	if err != nil {
		// A broken marker store must not block the request; delegate as
		// if no marker existed.
		logger.Log.Warn("marker store consume failed",
			zap.String("filter", s.next.Name()),
			zap.Error(err),
		)
		return s.next.Process(c, params)
	}
	if consumed {
		logger.Log.Debug("skip execution: already acknowledged this session",
			zap.String("filter", s.next.Name()))
		return true, nil
	}
	return s.next.Process(c, params)
}
