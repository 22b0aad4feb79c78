package gateway

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"blog-server-go/internal/platform/observability"
)

// corsFilter runs ahead of authorization. Browser requests get the CORS
// headers from gin-contrib/cors; every OPTIONS request is answered 200
// without reaching the auth filter.
func corsFilter(maxAge time.Duration, metrics *observability.Metrics) gin.HandlerFunc {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	inner := cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:              []string{"Authorization", "Content-Type", "X-Captcha-Key"},
		ExposeHeaders:             []string{"X-Captcha-Key"},
		MaxAge:                    maxAge,
		OptionsResponseStatusCode: http.StatusOK,
	})

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			metrics.GatewayDecision("preflight")
			if c.GetHeader("Origin") == "" {
				c.AbortWithStatus(http.StatusOK)
				return
			}
		}
		inner(c)
	}
}
