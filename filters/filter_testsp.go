package filters

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/getkayan/authproc/adapters"
	"github.com/getkayan/authproc/config"
	"github.com/getkayan/authproc/domain"
	"github.com/getkayan/authproc/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// KindTestServiceWarning identifies the test-service warning filter in
// pipeline configuration.
const KindTestServiceWarning = "test_service_warning"

// OptIsTestSpAttr names the facility attribute flagging a service as a
// test instance.
const OptIsTestSpAttr = "isTestSpAttr"

// ParamTarget carries the original request URL through the warning-page
// redirect.
const ParamTarget = "target"

// TestServiceWarning redirects users to an interstitial warning page when
// the facility they are about to access is flagged as a test service. The
// filter is wrapped in SessionOnce, so after the user acknowledges the
// warning once it no longer triggers for that browser session.
type TestServiceWarning struct {
	name        string
	attrName    string
	adapter     adapters.Adapter
	issuer      string
	warningPath string
}

// NewTestServiceWarningFilter is the Factory for KindTestServiceWarning.
func NewTestServiceWarningFilter(cfg config.FilterConfig, deps Deps) (Filter, error) {
	attrName, err := cfg.RequiredOption(OptIsTestSpAttr)
	if err != nil {
		return nil, err
	}
	f := &TestServiceWarning{
		name:        cfg.Name,
		attrName:    attrName,
		adapter:     deps.Adapter,
		issuer:      deps.Issuer,
		warningPath: deps.WarningPath,
	}
	return NewSessionOnce(f, deps.Markers, deps.Sessions), nil
}

func (f *TestServiceWarning) Name() string { return f.name }

// Process fails open: an absent facility or an unset attribute means "not
// a test service" and the request continues. An attribute lookup error is
// not caught here; it propagates and aborts the request.
func (f *TestServiceWarning) Process(c echo.Context, params *domain.FilterContext) (bool, error) {
	if !params.HasFacility() {
		logger.Log.Debug("skip execution: no facility provided", zap.String("filter", f.name))
		return true, nil
	}

	facility := params.Facility()
	attrValue, err := f.adapter.GetFacilityAttributeValue(c.Request().Context(), facility.ID, f.attrName)
	if err != nil {
		return false, err
	}
	if attrValue == nil {
		logger.Log.Debug("skip execution: attribute has no value",
			zap.String("filter", f.name),
			zap.String("attribute", f.attrName),
		)
		return true, nil
	}
	if attrValue.AsBool() {
		logger.Log.Debug("redirecting user to test service warning page",
			zap.String("filter", f.name),
			zap.String("facility_id", facility.ID),
		)
		return false, f.redirect(c)
	}

	logger.Log.Debug("service is not a test instance, letting user through",
		zap.String("filter", f.name))
	return true, nil
}

func (f *TestServiceWarning) redirect(c echo.Context) error {
	target := requestURL(c)
	redirectURL := strings.TrimSuffix(f.issuer, "/") + f.warningPath +
		"?" + ParamTarget + "=" + url.QueryEscape(target)
	return c.Redirect(http.StatusMovedPermanently, redirectURL)
}

// requestURL reconstructs the full URL the user originally requested.
func requestURL(c echo.Context) string {
	req := c.Request()
	return c.Scheme() + "://" + req.Host + req.RequestURI
}
