package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/stage-intake/internal/errors"
)

// CSRFConfig holds configuration for CSRF protection middleware.
type CSRFConfig struct {
	// AllowedOrigins usually holds just the public base URL.
	AllowedOrigins []string
}

// CSRF returns middleware that validates Origin/Referer headers on
// state-changing requests.
func CSRF(config CSRFConfig) gin.HandlerFunc {
	allowedSet := make(map[string]bool)
	for _, origin := range config.AllowedOrigins {
		allowedSet[normalizeOrigin(origin)] = true
	}

	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			c.Next()
			return
		}

		// Origin first, then Referer
		if origin := c.GetHeader("Origin"); origin != "" {
			if !allowedSet[normalizeOrigin(origin)] {
				apierrors.Forbidden(c, "Request origin not allowed")
				return
			}
			c.Next()
			return
		}

		if referer := c.GetHeader("Referer"); referer != "" {
			if !allowedSet[normalizeOrigin(extractOrigin(referer))] {
				apierrors.Forbidden(c, "Request origin not allowed")
				return
			}
			c.Next()
			return
		}

		apierrors.Forbidden(c, "Request origin missing")
	}
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.ToLower(extractOrigin(origin)), "/")
}

// extractOrigin reduces a URL to scheme://host[:port].
func extractOrigin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return rawURL
	}
	return parsed.Scheme + "://" + parsed.Host
}
