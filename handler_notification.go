package presence_sdk

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cydxin/presence-sdk/middleware"
	"github.com/cydxin/presence-sdk/models"
	"github.com/cydxin/presence-sdk/response"
	"github.com/cydxin/presence-sdk/service"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// currentUser reads the id stored by the auth middleware.
func currentUser(ctx *gin.Context) (string, bool) {
	uid := ctx.GetString(middleware.ContextUserIDKey)
	if uid == "" {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return "", false
	}
	return uid, true
}

// NotificationPage is one page of GinHandleListNotifications.
type NotificationPage struct {
	Items      []models.Notification `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"` // empty when there is no further page
}

// GinHandleListNotifications lists the caller's notifications, newest first.
// @Summary List notifications
// @Tags notification
// @Produce json
// @Param unread_only query bool false "unread only"
// @Param cursor query string false "next_cursor of the previous page"
// @Param limit query int false "page size (default 50, max 200)"
// @Success 200 {object} response.Response{data=NotificationPage}
// @Security BearerAuth
// @Router /notification/list [get]
func (e *PresenceEngine) GinHandleListNotifications(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	q := service.ListQuery{
		UnreadOnly: ctx.DefaultQuery("unread_only", "false") == "true",
		Cursor:     ctx.Query("cursor"),
		Limit:      limit,
	}

	page, err := e.NotificationService.List(ctx.Request.Context(), uid, q)
	if errors.Is(err, service.ErrInvalidInput) {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid cursor"))
		return
	}
	if err != nil {
		e.logger.Error("list notifications", zap.String("user", uid), zap.Error(err))
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "list failed"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(NotificationPage{Items: page.Items, NextCursor: page.NextCursor}))
}

// GinHandleGetNotification returns one notification of the caller.
// @Summary Get a notification
// @Tags notification
// @Produce json
// @Param id query string true "notification id"
// @Success 200 {object} response.Response{data=models.Notification}
// @Security BearerAuth
// @Router /notification/detail [get]
func (e *PresenceEngine) GinHandleGetNotification(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	id := ctx.Query("id")
	if id == "" {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "id is required"))
		return
	}
	n, err := e.NotificationService.Get(ctx.Request.Context(), uid, id)
	if errors.Is(err, service.ErrNotificationNotFound) {
		ctx.JSON(http.StatusOK, response.Error(response.CodeNotFound, "notification not found"))
		return
	}
	if err != nil {
		e.logger.Error("get notification", zap.String("user", uid), zap.String("id", id), zap.Error(err))
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "get failed"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(n))
}

type MarkNotificationsReadReq struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// MarkReadResp reports which ids were marked; unknown or foreign ids are skipped.
type MarkReadResp struct {
	Updated  []string `json:"updated"`
	NotFound []string `json:"not_found,omitempty"`
}

// GinHandleMarkNotificationsRead marks the given notifications read.
// @Summary Mark notifications read
// @Tags notification
// @Accept json
// @Produce json
// @Param req body MarkNotificationsReadReq true "notification ids"
// @Success 200 {object} response.Response{data=MarkReadResp}
// @Security BearerAuth
// @Router /notification/read [post]
func (e *PresenceEngine) GinHandleMarkNotificationsRead(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req MarkNotificationsReadReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}

	out := MarkReadResp{Updated: []string{}}
	for _, id := range lo.Uniq(lo.Compact(req.IDs)) {
		err := e.NotificationService.MarkRead(ctx.Request.Context(), uid, id)
		switch {
		case err == nil:
			out.Updated = append(out.Updated, id)
		case errors.Is(err, service.ErrNotificationNotFound):
			out.NotFound = append(out.NotFound, id)
		default:
			e.logger.Error("mark read", zap.String("user", uid), zap.String("id", id), zap.Error(err))
			ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "mark read failed"))
			return
		}
	}
	ctx.JSON(http.StatusOK, response.Success(out))
}

// GinHandleMarkAllNotificationsRead marks every notification of the caller read.
// @Summary Mark all notifications read
// @Tags notification
// @Produce json
// @Success 200 {object} response.Response{data=map[string]int64} "data.updated"
// @Security BearerAuth
// @Router /notification/read_all [post]
func (e *PresenceEngine) GinHandleMarkAllNotificationsRead(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	n, err := e.NotificationService.MarkAllRead(ctx.Request.Context(), uid)
	if err != nil {
		e.logger.Error("mark all read", zap.String("user", uid), zap.Error(err))
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "mark all read failed"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]int64{"updated": n}))
}

// GinHandleUnreadCount
// @Summary Unread notification count
// @Tags notification
// @Produce json
// @Success 200 {object} response.Response{data=map[string]int64} "data.count"
// @Security BearerAuth
// @Router /notification/unread_count [get]
func (e *PresenceEngine) GinHandleUnreadCount(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	n, err := e.NotificationService.Count(ctx.Request.Context(), uid, true)
	if err != nil {
		e.logger.Error("unread count", zap.String("user", uid), zap.Error(err))
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "count failed"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]int64{"count": n}))
}

// GinHandleGetPreferences
// @Summary Get notification preferences
// @Tags notification
// @Produce json
// @Success 200 {object} response.Response{data=service.Preferences}
// @Security BearerAuth
// @Router /notification/preferences [get]
func (e *PresenceEngine) GinHandleGetPreferences(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	p, err := e.PreferenceService.Resolve(ctx.Request.Context(), uid)
	if err != nil {
		e.logger.Error("resolve preferences", zap.String("user", uid), zap.Error(err))
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "preferences unavailable"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(p))
}

// UpdatePreferencesReq uses pointers so a missing field keeps its current value.
type UpdatePreferencesReq struct {
	EmailEnabled *bool `json:"email_enabled"`
	PushEnabled  *bool `json:"push_enabled"`
}

// GinHandleUpdatePreferences
// @Summary Update notification preferences
// @Tags notification
// @Accept json
// @Produce json
// @Param req body UpdatePreferencesReq true "fields to change"
// @Success 200 {object} response.Response{data=service.Preferences}
// @Security BearerAuth
// @Router /notification/preferences [post]
func (e *PresenceEngine) GinHandleUpdatePreferences(ctx *gin.Context) {
	uid, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req UpdatePreferencesReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}
	p, err := e.PreferenceService.Resolve(ctx.Request.Context(), uid)
	if err != nil {
		e.logger.Error("resolve preferences", zap.String("user", uid), zap.Error(err))
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "preferences unavailable"))
		return
	}
	if req.EmailEnabled != nil {
		p.EmailEnabled = *req.EmailEnabled
	}
	if req.PushEnabled != nil {
		p.PushEnabled = *req.PushEnabled
	}
	if err := e.PreferenceService.Update(ctx.Request.Context(), uid, p); err != nil {
		e.logger.Error("update preferences", zap.String("user", uid), zap.Error(err))
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "update failed"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(p))
}

// DispatchReq targets either explicit users or every member of a project.
type DispatchReq struct {
	UserIDs       []string       `json:"user_ids"`
	ProjectID     string         `json:"project_id"`
	ExcludeUserID string         `json:"exclude_user_id"`
	Type          string         `json:"type" binding:"required"`
	Title         string         `json:"title" binding:"required"`
	Message       string         `json:"message"`
	Data          map[string]any `json:"data"`
}

// DispatchItem is the per-user outcome of GinHandleDispatch.
type DispatchItem struct {
	UserID         string              `json:"user_id"`
	NotificationID string              `json:"notification_id,omitempty"`
	Deliveries     *service.Deliveries `json:"deliveries,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// GinHandleDispatch creates and fans out a notification for trusted internal callers.
// @Summary Dispatch a notification
// @Tags notification
// @Accept json
// @Produce json
// @Param req body DispatchReq true "recipients and content"
// @Success 200 {object} response.Response{data=[]DispatchItem}
// @Security InternalKey
// @Router /notification/dispatch [post]
func (e *PresenceEngine) GinHandleDispatch(ctx *gin.Context) {
	var req DispatchReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}
	if len(req.UserIDs) == 0 && req.ProjectID == "" {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "user_ids or project_id is required"))
		return
	}

	in := service.Input{Type: req.Type, Title: req.Title, Message: req.Message}
	if req.Data != nil {
		in.Data = req.Data
	}
	var results []service.UserResult
	if req.ProjectID != "" {
		var err error
		results, err = e.Dispatcher.DispatchToProjectMembers(ctx.Request.Context(), req.ProjectID, in, req.ExcludeUserID)
		if err != nil {
			e.logger.Error("project dispatch", zap.String("project", req.ProjectID), zap.Error(err))
			ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "project members unavailable"))
			return
		}
	} else {
		results = e.Dispatcher.DispatchToMany(ctx.Request.Context(), req.UserIDs, in)
	}

	items := lo.Map(results, func(r service.UserResult, _ int) DispatchItem {
		it := DispatchItem{UserID: r.UserID}
		if r.Err != nil {
			it.Error = r.Err.Error()
			return it
		}
		it.NotificationID = r.Result.Record.ID
		it.Deliveries = &r.Result.Deliveries
		return it
	})
	ctx.JSON(http.StatusOK, response.Success(items))
}
