package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest("GET", "/?"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"fhir params", "_count=5&_offset=10", 5, 10},
		{"plain params", "limit=7&offset=3", 7, 3},
		{"fhir wins over plain", "_count=5&limit=7", 5, 0},
		{"capped at max", "_count=5000", MaxLimit, 0},
		{"negative ignored", "_count=-1&_offset=-2", DefaultLimit, 0},
		{"garbage ignored", "_count=abc&_offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paramsFor(t, tt.query)
			if got.Limit != tt.wantLimit || got.Offset != tt.wantOffset {
				t.Errorf("got %+v, want limit=%d offset=%d", got, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestHasNext(t *testing.T) {
	p := Params{Limit: 10, Offset: 0}
	if !p.HasNext(11) {
		t.Error("expected next page for total=11")
	}
	if p.HasNext(10) {
		t.Error("expected no next page for total=10")
	}
	if got := p.NextOffset(); got != 10 {
		t.Errorf("NextOffset() = %d, want 10", got)
	}
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]int{1, 2, 3}, 30, 3, 0)
	if !r.HasMore {
		t.Error("expected HasMore when more rows remain")
	}
	r = NewResponse([]int{1}, 1, 20, 0)
	if r.HasMore {
		t.Error("did not expect HasMore for single-page result")
	}
}
