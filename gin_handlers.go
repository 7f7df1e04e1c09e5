package presence_sdk

import (
	"github.com/cydxin/presence-sdk/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouteOptions tunes RegisterGinRoutes.
type RouteOptions struct {
	// ServiceName labels the otel server spans (default "presence").
	ServiceName string
	// Swagger mounts the swagger UI at /swagger/*any.
	Swagger bool
	// InternalAuth guards the service-to-service routes. When nil the
	// engine's internal key is checked; with neither, those routes are not
	// mounted.
	InternalAuth gin.HandlerFunc
}

// RegisterGinRoutes mounts the HTTP surface on r:
//
//	GET  /metrics                          prometheus
//	GET  /api/v1/ws                        websocket upgrade (own token handshake)
//	*    /api/v1/notification/...          bearer auth
//	*    /api/v1/presence/..., /push/...   bearer auth
//	POST /api/v1/notification/dispatch     internal auth
//	POST /api/v1/project/update            internal auth
func (e *PresenceEngine) RegisterGinRoutes(r *gin.Engine, opt RouteOptions) {
	if opt.ServiceName == "" {
		opt.ServiceName = "presence"
	}
	r.Use(otelgin.Middleware(opt.ServiceName))
	if m := e.config.Metrics; m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api/v1")
	api.GET("/ws", e.GinHandleWs)

	authed := api.Group("", e.GinAuthMiddleware(nil))
	{
		n := authed.Group("/notification")
		n.GET("/list", e.GinHandleListNotifications)
		n.GET("/detail", e.GinHandleGetNotification)
		n.POST("/read", e.GinHandleMarkNotificationsRead)
		n.POST("/read_all", e.GinHandleMarkAllNotificationsRead)
		n.GET("/unread_count", e.GinHandleUnreadCount)
		n.GET("/preferences", e.GinHandleGetPreferences)
		n.POST("/preferences", e.GinHandleUpdatePreferences)

		authed.GET("/presence/user", e.GinHandleUserPresence)
		authed.GET("/presence/project", e.GinHandleProjectPresence)
		authed.POST("/push/device", e.GinHandleRegisterDevice)
		authed.POST("/push/device/delete", e.GinHandleUnregisterDevice)
	}

	internal := opt.InternalAuth
	if internal == nil && e.config.InternalKey != "" {
		internal = middleware.GinInternalKeyMiddleware(e.config.InternalKey)
	}
	if internal != nil {
		in := api.Group("", internal)
		in.POST("/notification/dispatch", e.GinHandleDispatch)
		in.POST("/project/update", e.GinHandleProjectUpdate)
	} else {
		e.logger.Info("internal routes not mounted, no internal key configured")
	}

	if opt.Swagger {
		RegisterSwagger(r, "")
	}
}

// GinHandleWs upgrades to a WebSocket. The token may be passed as a bearer
// header, a token query parameter or a later authenticate message.
// @Summary WebSocket endpoint
// @Tags ws
// @Param token query string false "credential token"
// @Success 101 "switching protocols"
// @Security QueryToken
// @Router /ws [get]
func (e *PresenceEngine) GinHandleWs(ctx *gin.Context) {
	e.WsServer.ServeWs(ctx.Writer, ctx.Request)
}
