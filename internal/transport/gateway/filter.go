package gateway

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"blog-server-go/internal/platform/observability"
	"blog-server-go/internal/platform/requestctx"
)

// SubjectResolver turns a session token into an account id.
type SubjectResolver interface {
	SubjectOf(token string) (int64, error)
}

// ContextUserIDKey is the gin context key holding the authenticated id.
const ContextUserIDKey = "userID"

// Logger is the logging contract of the gateway.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// authFilter authorizes every request that is not whitelisted. Rejections are
// a bare 401 and never reach an upstream.
func authFilter(tokens SubjectResolver, whitelist *Whitelist, metrics *observability.Metrics, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// a client must never be able to choose its own identity
		c.Request.Header.Del(requestctx.UserIDHeader)

		// routes served by the gateway itself
		if c.FullPath() != "" {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		if whitelist.Allows(path) {
			metrics.GatewayDecision("whitelisted")
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			reject(c, metrics, logger, "missing bearer token")
			return
		}
		userID, err := tokens.SubjectOf(token)
		if err != nil {
			reject(c, metrics, logger, err.Error())
			return
		}

		c.Request = c.Request.WithContext(requestctx.WithUserID(c.Request.Context(), userID))
		c.Set(ContextUserIDKey, userID)
		metrics.GatewayDecision("authorized")
		c.Next()
	}
}

func reject(c *gin.Context, metrics *observability.Metrics, logger Logger, reason string) {
	metrics.GatewayDecision("rejected")
	if logger != nil {
		logger.Debug("[网关] 拒绝 %s %s: %s", c.Request.Method, c.Request.URL.Path, reason)
	}
	c.AbortWithStatus(http.StatusUnauthorized)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" value.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
