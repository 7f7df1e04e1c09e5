package presence_sdk

import (
	"net/http"

	"github.com/cydxin/presence-sdk/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserPresenceResp struct {
	UserID      string `json:"user_id"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
}

// GinHandleUserPresence
// @Summary Is a user online
// @Tags presence
// @Produce json
// @Param user_id query string true "user id"
// @Success 200 {object} response.Response{data=UserPresenceResp}
// @Security BearerAuth
// @Router /presence/user [get]
func (e *PresenceEngine) GinHandleUserPresence(ctx *gin.Context) {
	uid := ctx.Query("user_id")
	if uid == "" {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "user_id is required"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(UserPresenceResp{
		UserID:      uid,
		Online:      e.Presence.IsOnline(uid),
		Connections: len(e.Presence.ConnectionsOf(uid)),
	}))
}

type ProjectPresenceResp struct {
	ProjectID string   `json:"project_id"`
	Online    []string `json:"online"`
}

// GinHandleProjectPresence lists the online members of a project. The caller
// must be a member.
// @Summary Online members of a project
// @Tags presence
// @Produce json
// @Param project_id query string true "project id"
// @Success 200 {object} response.Response{data=ProjectPresenceResp}
// @Security BearerAuth
// @Router /presence/project [get]
func (e *PresenceEngine) GinHandleProjectPresence(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	pid := ctx.Query("project_id")
	if pid == "" {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "project_id is required"))
		return
	}
	member, err := e.ProjectService.IsMember(ctx.Request.Context(), pid, uid)
	if err != nil {
		e.logger.Error("membership check", zap.String("project", pid), zap.Error(err))
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "membership check failed"))
		return
	}
	if !member {
		ctx.JSON(http.StatusOK, response.Error(response.CodePermissionDeny, "not a member of this project"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(ProjectPresenceResp{
		ProjectID: pid,
		Online:    e.Presence.OnlineUsersInProject(pid),
	}))
}

type ProjectUpdateReq struct {
	ProjectID string         `json:"project_id" binding:"required"`
	Payload   map[string]any `json:"payload"`
}

// GinHandleProjectUpdate broadcasts a project_update event to every
// connection in the project room. Nothing is persisted.
// @Summary Broadcast a project update
// @Tags presence
// @Accept json
// @Produce json
// @Param req body ProjectUpdateReq true "project and payload"
// @Success 200 {object} response.Response{data=hub.BroadcastResult}
// @Security InternalKey
// @Router /project/update [post]
func (e *PresenceEngine) GinHandleProjectUpdate(ctx *gin.Context) {
	var req ProjectUpdateReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}
	res, err := e.Dispatcher.BroadcastProjectUpdate(req.ProjectID, req.Payload)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(res))
}

type RegisterDeviceReq struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"omitempty,oneof=ios android web"`
}

// GinHandleRegisterDevice
// @Summary Register a push device
// @Tags push
// @Accept json
// @Produce json
// @Param req body RegisterDeviceReq true "device token"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /push/device [post]
func (e *PresenceEngine) GinHandleRegisterDevice(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req RegisterDeviceReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}
	if err := e.DeviceService.Register(ctx.Request.Context(), uid, req.Token, req.Platform); err != nil {
		e.logger.Error("register device", zap.String("user", uid), zap.Error(err))
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "register failed"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}

type UnregisterDeviceReq struct {
	Token string `json:"token" binding:"required"`
}

// GinHandleUnregisterDevice
// @Summary Unregister a push device
// @Tags push
// @Accept json
// @Produce json
// @Param req body UnregisterDeviceReq true "device token"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /push/device/delete [post]
func (e *PresenceEngine) GinHandleUnregisterDevice(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req UnregisterDeviceReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}
	if err := e.DeviceService.Unregister(ctx.Request.Context(), uid, req.Token); err != nil {
		e.logger.Error("unregister device", zap.String("user", uid), zap.Error(err))
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "unregister failed"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}
