// Package api serves the warning-page endpoint: the interstitial shown
// before a user enters a test service, and the acknowledgment action that
// sets the one-shot session marker consumed by the pipeline.
package api

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/getkayan/authproc/filters"
	"github.com/getkayan/authproc/logger"
	"github.com/getkayan/authproc/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var warningPage = template.Must(template.New("warning").Parse(`<!DOCTYPE html>
<html>
<head><title>Test service warning</title></head>
<body>
<h1>You are about to access a test service</h1>
<p>This service runs in a test environment. Data may be removed at any
time and no level of service is guaranteed.</p>
<form method="post">
<input type="hidden" name="target" value="{{.Target}}">
<button type="submit">Continue to the service</button>
</form>
</body>
</html>
`))

// Handler owns the warning page. It is the only writer of the session
// marker; the pipeline's dedup decorator is the only consumer.
type Handler struct {
	markers     session.MarkerStore
	sessions    *session.Manager
	issuer      string
	warningPath string

	// filterName is the pipeline filter this page acknowledges.
	filterName string
}

func NewHandler(markers session.MarkerStore, sessions *session.Manager, issuer, warningPath, filterName string) *Handler {
	return &Handler{
		markers:     markers,
		sessions:    sessions,
		issuer:      issuer,
		warningPath: warningPath,
		filterName:  filterName,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET(h.warningPath, h.HandleWarningPage)
	e.POST(h.warningPath, h.HandleApproval)
}

// HandleWarningPage renders the interstitial with the original request
// URL carried through as the target parameter.
func (h *Handler) HandleWarningPage(c echo.Context) error {
	target := c.QueryParam(filters.ParamTarget)
	if !h.validTarget(target) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid target")
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return warningPage.Execute(c.Response(), map[string]string{"Target": target})
}

// HandleApproval records the acknowledgment and sends the user back to
// the request they came from. The marker grants exactly one bypass.
func (h *Handler) HandleApproval(c echo.Context) error {
	target := c.FormValue(filters.ParamTarget)
	if !h.validTarget(target) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid target")
	}

	sid := h.sessions.SessionID(c)
	if err := h.markers.Set(c.Request().Context(), sid, h.filterName); err != nil {
		logger.Log.Error("failed to set session marker",
			zap.String("filter", h.filterName),
			zap.Error(err),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not record approval")
	}

	logger.Log.Debug("test service warning acknowledged",
		zap.String("filter", h.filterName),
		zap.String("target", target),
	)
	return c.Redirect(http.StatusFound, target)
}

// validTarget accepts relative URLs and absolute URLs sharing the
// issuer's origin. Anything else is an open-redirect attempt.
func (h *Handler) validTarget(target string) bool {
	if target == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	if u.Scheme == "" && u.Host == "" {
		return strings.HasPrefix(u.Path, "/")
	}
	issuer, err := url.Parse(h.issuer)
	if err != nil {
		return false
	}
	return u.Scheme == issuer.Scheme && u.Host == issuer.Host
}
