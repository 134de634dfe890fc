// security.go sets protective response headers. The backend serves both the
// page shells browsers navigate to and the JSON API the dashboard calls, so
// there are two presets: page responses get a CSP that permits the SPA
// bundle, API responses get a deny-everything CSP since nothing should
// render them.
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersConfig controls which headers are emitted
type SecurityHeadersConfig struct {
	// EnableHSTS adds Strict-Transport-Security
	EnableHSTS bool
	// HSTSMaxAge in seconds
	HSTSMaxAge int
	// HSTSIncludeSubdomains extends HSTS to subdomains
	HSTSIncludeSubdomains bool
	// HSTSPreload opts into browser preload lists
	HSTSPreload bool
	// EnableFrameOptions adds X-Frame-Options
	EnableFrameOptions bool
	// FrameOptionsValue is DENY or SAMEORIGIN
	FrameOptionsValue string
	// EnableContentTypeOptions adds X-Content-Type-Options: nosniff
	EnableContentTypeOptions bool
	// EnableXSSProtection adds the legacy X-XSS-Protection header
	EnableXSSProtection bool
	// ContentSecurityPolicy is emitted verbatim when non-empty
	ContentSecurityPolicy string
	// ReferrerPolicy is emitted verbatim when non-empty
	ReferrerPolicy string
	// PermissionsPolicy is emitted verbatim when non-empty
	PermissionsPolicy string
}

// DefaultSecurityHeadersConfig suits the page shell routes. The CSP allows
// same-origin scripts and inline styles because the dashboard bundle
// injects its theme at runtime; case documents never render inline
// (Content-Disposition: attachment), so no frame or object sources are
// needed.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		EnableHSTS:               true,
		HSTSMaxAge:               31536000,
		HSTSIncludeSubdomains:    true,
		HSTSPreload:              false,
		EnableFrameOptions:       true,
		FrameOptionsValue:        "DENY",
		EnableContentTypeOptions: true,
		EnableXSSProtection:      true,
		ContentSecurityPolicy:    "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'; connect-src 'self'",
		ReferrerPolicy:           "strict-origin-when-cross-origin",
		PermissionsPolicy:        "geolocation=(), microphone=(), camera=()",
	}
}

// APISecurityHeadersConfig suits JSON responses: nothing may load or frame
// them, and no referrer leaks trial case numbers embedded in URLs to
// third parties.
func APISecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		EnableHSTS:               true,
		HSTSMaxAge:               31536000,
		HSTSIncludeSubdomains:    true,
		HSTSPreload:              false,
		EnableFrameOptions:       true,
		FrameOptionsValue:        "DENY",
		EnableContentTypeOptions: true,
		EnableXSSProtection:      false,
		ContentSecurityPolicy:    "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:           "no-referrer",
		PermissionsPolicy:        "",
	}
}

// SecurityHeadersMiddleware emits the configured headers on every response.
func SecurityHeadersMiddleware(config SecurityHeadersConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.EnableHSTS {
			hsts := "max-age=" + strconv.Itoa(config.HSTSMaxAge)
			if config.HSTSIncludeSubdomains {
				hsts += "; includeSubDomains"
			}
			if config.HSTSPreload {
				hsts += "; preload"
			}
			c.Header("Strict-Transport-Security", hsts)
		}

		if config.EnableFrameOptions && config.FrameOptionsValue != "" {
			c.Header("X-Frame-Options", config.FrameOptionsValue)
		}
		if config.EnableContentTypeOptions {
			c.Header("X-Content-Type-Options", "nosniff")
		}
		if config.EnableXSSProtection {
			c.Header("X-XSS-Protection", "1; mode=block")
		}
		if config.ContentSecurityPolicy != "" {
			c.Header("Content-Security-Policy", config.ContentSecurityPolicy)
		}
		if config.ReferrerPolicy != "" {
			c.Header("Referrer-Policy", config.ReferrerPolicy)
		}
		if config.PermissionsPolicy != "" {
			c.Header("Permissions-Policy", config.PermissionsPolicy)
		}

		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Header("Cross-Origin-Embedder-Policy", "require-corp")
		c.Header("Cross-Origin-Opener-Policy", "same-origin")
		c.Header("Cross-Origin-Resource-Policy", "same-origin")

		c.Next()
	}
}
