package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestTenantAuth_Success(t *testing.T) {
	e := echo.New()
	m := NewTenantMiddleware()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("X-User-ID", "42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handlerCalled := false
	handler := func(c echo.Context) error {
		handlerCalled = true
		if GetUserID(c) != 42 {
			t.Errorf("Expected user ID 42, got %d", GetUserID(c))
		}
		return c.String(http.StatusOK, "OK")
	}

	if err := m.Authenticate()(handler)(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !handlerCalled {
		t.Error("Expected handler to be called")
	}
}

func TestTenantAuth_MissingHeader(t *testing.T) {
	e := echo.New()
	m := NewTenantMiddleware()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		t.Error("Handler should not be called")
		return nil
	}

	if err := m.Authenticate()(handler)(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestTenantAuth_InvalidHeader(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "abc"},
		{"zero", "0"},
		{"negative", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			m := NewTenantMiddleware()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
			req.Header.Set("X-User-ID", tt.value)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := func(c echo.Context) error {
				t.Error("Handler should not be called")
				return nil
			}

			if err := m.Authenticate()(handler)(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rec.Code)
			}
		})
	}
}

func TestGetUserID_Unset(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if GetUserID(c) != 0 {
		t.Errorf("Expected 0 for unset tenant, got %d", GetUserID(c))
	}
}
