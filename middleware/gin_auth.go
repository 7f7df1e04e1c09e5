package middleware

import (
	"net/http"

	"github.com/cydxin/presence-sdk/response"
	"github.com/cydxin/presence-sdk/service"
	"github.com/gin-gonic/gin"
)

const (
	// ContextUserIDKey is where the verified user id (string) is stored.
	ContextUserIDKey = "user_id"
	ContextTokenKey  = "token"
)

// AuthOptions overrides the lookup and context keys. Empty fields keep the
// defaults: Authorization, token, user_id, token.
type AuthOptions struct {
	HeaderKey string
	QueryKey  string
	UserIDKey string
	TokenKey  string
}

func (o *AuthOptions) withDefaults() AuthOptions {
	var out AuthOptions
	if o != nil {
		out = *o
	}
	if out.HeaderKey == "" {
		out.HeaderKey = service.DefaultTokenHeader
	}
	if out.QueryKey == "" {
		out.QueryKey = service.DefaultTokenQuery
	}
	if out.UserIDKey == "" {
		out.UserIDKey = ContextUserIDKey
	}
	if out.TokenKey == "" {
		out.TokenKey = ContextTokenKey
	}
	return out
}

// GinAuthMiddleware resolves the request token to a user id and stores both
// in the gin.Context. Token lookup is service.TokenFromRequest, the same one
// the WebSocket handshake uses.
//
//	router.Use(middleware.GinAuthMiddleware(authService, nil))
func GinAuthMiddleware(auth *service.AuthService, opt *AuthOptions) gin.HandlerFunc {
	cfg := opt.withDefaults()

	return func(c *gin.Context) {
		if auth == nil {
			abort(c, http.StatusInternalServerError, response.CodeInternalError, "auth service is nil")
			return
		}
		token := service.TokenFromRequest(c.Request, cfg.HeaderKey, cfg.QueryKey)
		if token == "" {
			abort(c, http.StatusUnauthorized, response.CodeTokenInvalid, "missing token")
			return
		}
		uid, err := auth.Verify(c.Request.Context(), token)
		if err != nil {
			abort(c, http.StatusUnauthorized, response.CodeTokenInvalid, "invalid token")
			return
		}
		c.Set(cfg.UserIDKey, uid)
		c.Set(cfg.TokenKey, token)
		c.Next()
	}
}

func abort(c *gin.Context, status, code int, msg string) {
	c.AbortWithStatusJSON(status, response.Response{Code: code, Msg: msg})
}
