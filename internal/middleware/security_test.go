package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// applySecurityHeaders runs a GET / through SecurityHeadersMiddleware and
// returns the recorder so callers can inspect headers.
func applySecurityHeaders(cfg SecurityHeadersConfig) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeadersMiddleware_Toggles(t *testing.T) {
	tests := []struct {
		name   string
		cfg    SecurityHeadersConfig
		header string
		want   string
	}{
		{
			name:   "frame options DENY",
			cfg:    SecurityHeadersConfig{EnableFrameOptions: true, FrameOptionsValue: "DENY"},
			header: "X-Frame-Options",
			want:   "DENY",
		},
		{
			name:   "frame options SAMEORIGIN",
			cfg:    SecurityHeadersConfig{EnableFrameOptions: true, FrameOptionsValue: "SAMEORIGIN"},
			header: "X-Frame-Options",
			want:   "SAMEORIGIN",
		},
		{
			name:   "frame options disabled",
			cfg:    SecurityHeadersConfig{EnableFrameOptions: false, FrameOptionsValue: "DENY"},
			header: "X-Frame-Options",
			want:   "",
		},
		{
			name:   "frame options enabled but empty value",
			cfg:    SecurityHeadersConfig{EnableFrameOptions: true},
			header: "X-Frame-Options",
			want:   "",
		},
		{
			name:   "nosniff enabled",
			cfg:    SecurityHeadersConfig{EnableContentTypeOptions: true},
			header: "X-Content-Type-Options",
			want:   "nosniff",
		},
		{
			name:   "nosniff disabled",
			cfg:    SecurityHeadersConfig{},
			header: "X-Content-Type-Options",
			want:   "",
		},
		{
			name:   "xss protection enabled",
			cfg:    SecurityHeadersConfig{EnableXSSProtection: true},
			header: "X-XSS-Protection",
			want:   "1; mode=block",
		},
		{
			name:   "xss protection disabled",
			cfg:    SecurityHeadersConfig{},
			header: "X-XSS-Protection",
			want:   "",
		},
		{
			name:   "csp emitted verbatim",
			cfg:    SecurityHeadersConfig{ContentSecurityPolicy: "default-src 'self'"},
			header: "Content-Security-Policy",
			want:   "default-src 'self'",
		},
		{
			name:   "csp absent when empty",
			cfg:    SecurityHeadersConfig{},
			header: "Content-Security-Policy",
			want:   "",
		},
		{
			name:   "referrer policy",
			cfg:    SecurityHeadersConfig{ReferrerPolicy: "no-referrer"},
			header: "Referrer-Policy",
			want:   "no-referrer",
		},
		{
			name:   "permissions policy",
			cfg:    SecurityHeadersConfig{PermissionsPolicy: "geolocation=()"},
			header: "Permissions-Policy",
			want:   "geolocation=()",
		},
		{
			name:   "hsts disabled",
			cfg:    SecurityHeadersConfig{EnableHSTS: false},
			header: "Strict-Transport-Security",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := applySecurityHeaders(tt.cfg)
			if got := w.Header().Get(tt.header); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestSecurityHeadersMiddleware_HSTSComposition(t *testing.T) {
	w := applySecurityHeaders(SecurityHeadersConfig{
		EnableHSTS:            true,
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
	})
	hsts := w.Header().Get("Strict-Transport-Security")
	if !strings.Contains(hsts, "max-age=31536000") {
		t.Errorf("HSTS = %q, want to contain max-age=31536000", hsts)
	}
	if !strings.Contains(hsts, "includeSubDomains") {
		t.Errorf("HSTS = %q, want to contain includeSubDomains", hsts)
	}
	if strings.Contains(hsts, "preload") {
		t.Errorf("HSTS = %q, should not contain preload unless opted in", hsts)
	}

	w = applySecurityHeaders(SecurityHeadersConfig{
		EnableHSTS:  true,
		HSTSMaxAge:  86400,
		HSTSPreload: true,
	})
	if hsts := w.Header().Get("Strict-Transport-Security"); !strings.Contains(hsts, "preload") {
		t.Errorf("HSTS = %q, want to contain preload", hsts)
	}
}

func TestSecurityHeadersMiddleware_FixedHeaders(t *testing.T) {
	// Always emitted regardless of config.
	w := applySecurityHeaders(SecurityHeadersConfig{})
	fixed := map[string]string{
		"X-Permitted-Cross-Domain-Policies": "none",
		"Cross-Origin-Embedder-Policy":      "require-corp",
		"Cross-Origin-Opener-Policy":        "same-origin",
		"Cross-Origin-Resource-Policy":      "same-origin",
	}
	for header, want := range fixed {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestDefaultSecurityHeadersConfig(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig()
	if !cfg.EnableHSTS || cfg.HSTSMaxAge != 31536000 {
		t.Errorf("HSTS config = {%v, %d}, want enabled with one-year max-age", cfg.EnableHSTS, cfg.HSTSMaxAge)
	}
	if cfg.FrameOptionsValue != "DENY" {
		t.Errorf("FrameOptionsValue = %q, want DENY", cfg.FrameOptionsValue)
	}
	// The page shell needs same-origin scripts; the CSP must not be the
	// deny-everything API policy.
	if !strings.Contains(cfg.ContentSecurityPolicy, "script-src 'self'") {
		t.Errorf("page CSP = %q, want script-src 'self'", cfg.ContentSecurityPolicy)
	}

	w := applySecurityHeaders(cfg)
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Error("Strict-Transport-Security missing with default config")
	}
	if w.Header().Get("X-Frame-Options") == "" {
		t.Error("X-Frame-Options missing with default config")
	}
}

func TestAPISecurityHeadersConfig(t *testing.T) {
	cfg := APISecurityHeadersConfig()
	if cfg.EnableXSSProtection {
		t.Error("EnableXSSProtection = true, want false for JSON responses")
	}
	if !strings.Contains(cfg.ContentSecurityPolicy, "default-src 'none'") {
		t.Errorf("API CSP = %q, want default-src 'none'", cfg.ContentSecurityPolicy)
	}
	if cfg.ReferrerPolicy != "no-referrer" {
		t.Errorf("ReferrerPolicy = %q, want no-referrer", cfg.ReferrerPolicy)
	}
}
