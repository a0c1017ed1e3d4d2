package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/homelearnhq/homelearn/internal/auth"
	"github.com/homelearnhq/homelearn/internal/models"
)

func newTestJWT(t *testing.T) *iauth.JWTService {
	t.Helper()

	svc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "homelearn"})
	if err != nil {
		t.Fatalf("new jwt service: %v", err)
	}
	return svc
}

func issueToken(t *testing.T, jwt *iauth.JWTService, role models.Role) string {
	t.Helper()

	token, err := jwt.GenerateAccessToken(&models.User{
		BaseModel: models.BaseModel{ID: "6a3f7d0a-8a44-4b5e-9a57-2f4f2b37a001"},
		FirstName: "Test",
		LastName:  "User",
		Email:     "user@example.com",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwt := newTestJWT(t)
	r := gin.New()
	r.Use(Auth(jwt))
	r.GET("/me", func(c *gin.Context) {
		userID := c.GetString(CtxUserIDKey)
		c.String(200, userID)
	})

	// Missing header
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/me", nil)
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	// Garbage token
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401 for invalid token, got %d", w.Code)
	}

	// Valid token
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, jwt, models.RoleStudent))
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200 with valid token, got %d", w.Code)
	}
	if w.Body.String() != "6a3f7d0a-8a44-4b5e-9a57-2f4f2b37a001" {
		t.Fatalf("unexpected user id in context: %q", w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwt := newTestJWT(t)
	r := gin.New()
	r.Use(Auth(jwt), RequireRole(models.RoleTeacher))
	r.GET("/teacher-only", func(c *gin.Context) { c.String(200, "ok") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/teacher-only", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, jwt, models.RoleStudent))
	r.ServeHTTP(w, req)
	if w.Code != 403 {
		t.Fatalf("expected 403 for student, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/teacher-only", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, jwt, models.RoleTeacher))
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200 for teacher, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(2, 100*time.Millisecond))
	r.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		r.ServeHTTP(w, req)
		if w.Code != 200 {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}

	// Third request within the window is rejected
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	r.ServeHTTP(w, req)
	if w.Code != 429 {
		t.Fatalf("expected 429, got %d", w.Code)
	}

	time.Sleep(120 * time.Millisecond)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/ping", nil)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200 after reset, got %d", w.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORS())
	r.GET("/resource", func(c *gin.Context) { c.String(200, "ok") })

	// Preflight answered directly
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("OPTIONS", "/resource", nil)
	r.ServeHTTP(w, req)
	if w.Code != 204 {
		t.Fatalf("expected 204 for preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow-origin: %q", got)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/resource", nil)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got == "" {
		t.Fatal("expected allow-headers to be set")
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/resource", func(c *gin.Context) { c.String(200, "ok") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/resource", nil)
	r.ServeHTTP(w, req)

	for header, want := range map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
	} {
		if got := w.Header().Get(header); got != want {
			t.Fatalf("%s = %q, want %q", header, got, want)
		}
	}
}
