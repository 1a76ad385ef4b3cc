package filters

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/getkayan/authproc/config"
	"github.com/getkayan/authproc/domain"
)

func testWarningFilter(adapter *fakeAdapter) *TestServiceWarning {
	return &TestServiceWarning{
		name:        "is_test_sp",
		attrName:    "isTestSp",
		adapter:     adapter,
		issuer:      "http://localhost:8080",
		warningPath: "/warning",
	}
}

func TestTestServiceWarningRedirects(t *testing.T) {
	adapter := &fakeAdapter{attrs: map[string]*domain.AttributeValue{
		"42/isTestSp": {Value: true},
	}}
	f := testWarningFilter(adapter)

	c, rec := newContext(http.MethodGet, "/authorize?client_id=abc&scope=openid")
	params := domain.NewFilterContext(nil, &domain.Facility{ID: "42"}, nil)

	cont, err := f.Process(c, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cont {
		t.Error("expected the pipeline to stop")
	}
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("expected status 301, got %d", rec.Code)
	}

	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "http://localhost:8080/warning?target=") {
		t.Fatalf("unexpected redirect location %q", location)
	}
	u, err := url.Parse(location)
	if err != nil {
		t.Fatalf("invalid redirect location: %v", err)
	}
	target := u.Query().Get("target")
	want := "http://example.com/authorize?client_id=abc&scope=openid"
	if target != want {
		t.Errorf("target = %q, want %q", target, want)
	}
}

func TestTestServiceWarningContinuesWithoutFacility(t *testing.T) {
	adapter := &fakeAdapter{}
	f := testWarningFilter(adapter)

	c, rec := newContext(http.MethodGet, "/authorize")
	cont, err := f.Process(c, domain.NewFilterContext(nil, nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cont {
		t.Error("expected continue without a facility")
	}
	if adapter.attrCalls != 0 {
		t.Error("attribute lookup happened without a facility")
	}
	if rec.Body.Len() != 0 {
		t.Error("no response should be written on continue")
	}
}

func TestTestServiceWarningFailsOpenOnUnsetAttribute(t *testing.T) {
	f := testWarningFilter(&fakeAdapter{})

	c, _ := newContext(http.MethodGet, "/authorize")
	params := domain.NewFilterContext(nil, &domain.Facility{ID: "42"}, nil)

	cont, err := f.Process(c, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cont {
		t.Error("an unset attribute must be treated as not a test service")
	}
}

func TestTestServiceWarningContinuesOnFalseAttribute(t *testing.T) {
	adapter := &fakeAdapter{attrs: map[string]*domain.AttributeValue{
		"42/isTestSp": {Value: false},
	}}
	f := testWarningFilter(adapter)

	c, _ := newContext(http.MethodGet, "/authorize")
	cont, err := f.Process(c, domain.NewFilterContext(nil, &domain.Facility{ID: "42"}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cont {
		t.Error("expected continue for a non-test service")
	}
}

func TestTestServiceWarningPropagatesLookupError(t *testing.T) {
	boom := errors.New("attribute service down")
	f := testWarningFilter(&fakeAdapter{attrErr: boom})

	c, _ := newContext(http.MethodGet, "/authorize")
	_, err := f.Process(c, domain.NewFilterContext(nil, &domain.Facility{ID: "42"}, nil))
	if !errors.Is(err, boom) {
		t.Fatalf("expected lookup error to propagate, got %v", err)
	}
}

func TestTestServiceWarningFactoryRequiresAttrOption(t *testing.T) {
	_, err := NewTestServiceWarningFilter(config.FilterConfig{
		Name: "is_test_sp",
		Kind: KindTestServiceWarning,
	}, Deps{})
	if err == nil {
		t.Fatal("expected construction to fail without the attribute option")
	}
}
