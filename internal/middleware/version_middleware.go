package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cafezao-backend-go/internal/core"
)

// versionHeader carries the client app version on every request.
const versionHeader = "X-App-Version"

// VersionGate rejects clients older than the configured minimum app version
// with 426 Upgrade Required. Requests without the header pass through, so
// non-app callers (webhooks, health checks) are unaffected.
func VersionGate(settingsSvc core.SettingsService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		version := c.GetHeader(versionHeader)
		if version == "" {
			c.Next()
			return
		}

		allowed, min, err := settingsSvc.VersionAllowed(c.Request.Context(), version)
		if err != nil {
			// Settings being unreachable must not lock clients out.
			logger.Warn("version gate check failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusUpgradeRequired, ErrorResponse{
				Error:   "app version no longer supported",
				Details: "minimum supported version is " + min,
			})
			return
		}
		c.Next()
	}
}
