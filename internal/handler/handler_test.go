package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bike-marketplace/internal/service"
)

func TestStatusOf(t *testing.T) {
	cases := map[service.Kind]int{
		service.KindValidation:  http.StatusBadRequest,
		service.KindExternal:    http.StatusBadRequest,
		service.KindAuth:        http.StatusUnauthorized,
		service.KindForbidden:   http.StatusForbidden,
		service.KindNotFound:    http.StatusNotFound,
		service.KindRateLimited: http.StatusTooManyRequests,
		service.KindInternal:    http.StatusInternalServerError,
	}
	for k, want := range cases {
		if got := statusOf(k); got != want {
			t.Errorf("statusOf(%d) = %d, want %d", k, got, want)
		}
	}
}

func TestRespondErrorHidesInternalCause(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	wrapped := fmt.Errorf("outer: %w", &service.Error{Kind: service.KindInternal, Message: service.MsgInternal, Err: errors.New("dsn leaked")})
	if err := respondError(c, orNop(nil), wrapped); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"error\":\"Internal error.\",\"ok\":false}\n" {
		t.Fatalf("body = %q", got)
	}
}

func TestScalarString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"1200", "1200"},
		{float64(1800), "1800"},
		{1234.5, "1234.5"},
		{nil, ""},
		{true, ""},
		{[]any{"1"}, ""},
	}
	for _, tc := range cases {
		if got := scalarString(tc.in); got != tc.want {
			t.Errorf("scalarString(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseRank(t *testing.T) {
	if n, ok := parseRank(float64(7)); !ok || n != 7 {
		t.Fatalf("parseRank(7) = %d, %v", n, ok)
	}
	if n, ok := parseRank(" -3 "); !ok || n != -3 {
		t.Fatalf("parseRank(\" -3 \") = %d, %v", n, ok)
	}
	for _, bad := range []any{"", "abc", "NaN", true, nil} {
		if _, ok := parseRank(bad); ok {
			t.Errorf("parseRank(%v) accepted", bad)
		}
	}
}

func TestParseFlag(t *testing.T) {
	for _, s := range []string{"1", "true", "YES", " on "} {
		if !parseFlag(s) {
			t.Errorf("parseFlag(%q) = false", s)
		}
	}
	for _, s := range []string{"", "0", "no", "off"} {
		if parseFlag(s) {
			t.Errorf("parseFlag(%q) = true", s)
		}
	}
}

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("down") }

func TestReadyReportsDB(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/readyz", nil), rec)
	h := &HealthHandler{DB: downDB{}}
	if err := h.Ready(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
