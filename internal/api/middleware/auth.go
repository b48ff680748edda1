package middleware

import (
	"strings"

	"users-service/internal/api/apierror"

	"github.com/gin-gonic/gin"
)

// AuthGuard admits requests carrying one of tokens as a bearer token.
// Paths starting with any of the exclude prefixes are not checked.
func AuthGuard(tokens, exclude []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t != "" {
			allowed[t] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		if excluded(c.Request.URL.Path, exclude) {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Error(apierror.Unauthorized("Missing bearer token"))
			c.Abort()
			return
		}

		if _, ok := allowed[token]; !ok {
			c.Error(apierror.Forbidden("Invalid bearer token"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func excluded(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
