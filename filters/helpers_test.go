package filters

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/getkayan/authproc/domain"
	"github.com/getkayan/authproc/oauth2"
	"github.com/getkayan/authproc/stats"
	"github.com/labstack/echo/v4"
)

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

type fakeFilter struct {
	name  string
	cont  bool
	err   error
	calls int
}

func (f *fakeFilter) Name() string { return f.name }

func (f *fakeFilter) Process(c echo.Context, params *domain.FilterContext) (bool, error) {
	f.calls++
	return f.cont, f.err
}

type fakeClients struct {
	clients map[string]*oauth2.Client
	err     error
}

func (s *fakeClients) GetClient(ctx context.Context, id string) (*oauth2.Client, error) {
	if s.err != nil {
		return nil, s.err
	}
	if c, ok := s.clients[id]; ok {
		return c, nil
	}
	return nil, oauth2.ErrClientNotFound
}

func (s *fakeClients) CreateClient(ctx context.Context, client *oauth2.Client) error { return nil }
func (s *fakeClients) DeleteClient(ctx context.Context, id string) error             { return nil }

type fakeAdapter struct {
	facilities  map[string]*domain.Facility       // by client id
	attrs       map[string]*domain.AttributeValue // by facility id + "/" + attr name
	facilityErr error
	attrErr     error
	attrCalls   int
}

func (a *fakeAdapter) GetFacilityByClientID(ctx context.Context, clientID string) (*domain.Facility, error) {
	if a.facilityErr != nil {
		return nil, a.facilityErr
	}
	return a.facilities[clientID], nil
}

func (a *fakeAdapter) GetFacilityAttributeValue(ctx context.Context, facilityID, attrName string) (*domain.AttributeValue, error) {
	a.attrCalls++
	if a.attrErr != nil {
		return nil, a.attrErr
	}
	return a.attrs[facilityID+"/"+attrName], nil
}

type spyRecorder struct {
	events []stats.Event
	err    error
}

func (r *spyRecorder) Record(ctx context.Context, e stats.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

type mapAssertions map[string]string

func (m mapAssertions) AttributeValue(r *http.Request, name string) string {
	return m[name]
}
