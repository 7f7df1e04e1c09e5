package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cydxin/presence-sdk/response"
	"github.com/gin-gonic/gin"
)

// InternalKeyHeader carries the shared key of service-to-service calls.
const InternalKeyHeader = "X-Internal-Key"

// GinInternalKeyMiddleware admits only requests presenting key in the
// X-Internal-Key header. User bearer tokens are not accepted here.
func GinInternalKeyMiddleware(key string) gin.HandlerFunc {
	want := []byte(key)
	return func(c *gin.Context) {
		got := strings.TrimSpace(c.GetHeader(InternalKeyHeader))
		if key == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			abort(c, http.StatusForbidden, response.CodePermissionDeny, "internal key required")
			return
		}
		c.Next()
	}
}
