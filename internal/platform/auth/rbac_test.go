package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runWithRoles(t *testing.T, roles []string, required ...string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if roles != nil {
		req = req.WithContext(WithIdentity(context.Background(), "u1", roles))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	err := RequireRole(required...)(handler)(c)
	return rec, err
}

func TestRequireRole_Allowed(t *testing.T) {
	rec, err := runWithRoles(t, []string{RoleReceptionist}, RoleDoctor, RoleReceptionist)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_AdminAlwaysPasses(t *testing.T) {
	_, err := runWithRoles(t, []string{RoleAdmin}, RoleDoctor)
	if err != nil {
		t.Errorf("expected admin to pass, got %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	_, err := runWithRoles(t, []string{RolePatient}, RoleDoctor, RoleReceptionist)
	if err == nil {
		t.Fatal("expected error for unauthorized role")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", httpErr.Code)
	}
}

func TestRequireRole_NoIdentity(t *testing.T) {
	_, err := runWithRoles(t, nil, RolePatient)
	if err == nil {
		t.Fatal("expected error without identity")
	}
}
