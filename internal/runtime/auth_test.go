package runtime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestAuthMiddlewareBearer(t *testing.T) {
	secret := []byte("test-secret")
	token, err := SignJWT("42", secret, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	called := false
	handler := EchoAuthMiddleware(secret)(func(c echo.Context) error {
		called = true
		if got := c.Get("user_id"); got != "42" {
			t.Fatalf("user_id = %v", got)
		}
		if sub, ok := SubjectFromContext(c.Request().Context()); !ok || sub != "42" {
			t.Fatalf("subject = %q, %v", sub, ok)
		}
		return nil
	})
	if err := handler(ctx); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if !called {
		t.Fatal("next handler not called")
	}
}

func TestAuthMiddlewareCookie(t *testing.T) {
	secret := []byte("test-secret")
	token, _ := SignJWT("7", secret, time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "auth", Value: token})
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	handler := EchoAuthMiddleware(secret)(func(c echo.Context) error { return nil })
	if err := handler(ctx); err != nil {
		t.Fatalf("middleware: %v", err)
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	secret := []byte("test-secret")
	e := echo.New()

	cases := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"missing token", func(*http.Request) {}},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-jwt") }},
		{"wrong secret", func(r *http.Request) {
			tok, _ := SignJWT("42", []byte("other-secret"), time.Hour)
			r.Header.Set("Authorization", "Bearer "+tok)
		}},
		{"expired", func(r *http.Request) {
			tok, _ := SignJWT("42", secret, -time.Minute)
			r.Header.Set("Authorization", "Bearer "+tok)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			ctx := e.NewContext(req, httptest.NewRecorder())

			err := EchoAuthMiddleware(secret)(func(c echo.Context) error { return nil })(ctx)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 got %v", err)
			}
		})
	}
}
