package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/staff?"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("got %+v", p)
	}
}

func TestFromContext_Explicit(t *testing.T) {
	p := paramsFor(t, "limit=10&offset=30")
	if p.Limit != 10 || p.Offset != 30 {
		t.Errorf("got %+v", p)
	}
}

func TestFromContext_CapAndClamp(t *testing.T) {
	p := paramsFor(t, "limit=9999&offset=-5")
	if p.Limit != MaxLimit {
		t.Errorf("limit = %d, want cap %d", p.Limit, MaxLimit)
	}
	if p.Offset != 0 {
		t.Errorf("offset = %d, want 0", p.Offset)
	}
}

func TestFromContext_Garbage(t *testing.T) {
	p := paramsFor(t, "limit=abc&offset=xyz")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("got %+v", p)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	p := Params{Limit: 10, Offset: 0}
	if !NewResponse(nil, 25, p).HasMore {
		t.Error("expected has_more with 25 total")
	}
	p.Offset = 20
	if NewResponse(nil, 25, p).HasMore {
		t.Error("expected last page")
	}
}
