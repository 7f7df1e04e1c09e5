package presence_sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cydxin/presence-sdk/config"
	"github.com/cydxin/presence-sdk/metrics"
	"github.com/cydxin/presence-sdk/middleware"
	"github.com/cydxin/presence-sdk/models"
	"github.com/cydxin/presence-sdk/response"
	"github.com/cydxin/presence-sdk/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type apiResp struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type apiClient struct {
	t           *testing.T
	h           http.Handler
	token       string
	internalKey string
}

func newAPIClient(t *testing.T, e *PresenceEngine, token string) *apiClient {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	e.RegisterGinRoutes(r, RouteOptions{Swagger: true})
	return &apiClient{t: t, h: r, token: token}
}

func (c *apiClient) raw(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.internalKey != "" {
		r.Header.Set(middleware.InternalKeyHeader, c.internalKey)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, r)
	return w
}

// do expects HTTP 200 and decodes the envelope; out receives data when non-nil.
func (c *apiClient) do(method, path string, body, out any) apiResp {
	c.t.Helper()
	w := c.raw(method, path, body)
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
	var resp apiResp
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &resp))
	if out != nil && resp.Code == response.CodeSuccess {
		require.NoError(c.t, json.Unmarshal(resp.Data, out))
	}
	return resp
}

func TestHandlers_RequireToken(t *testing.T) {
	e, _ := newTestEngine(t)
	api := newAPIClient(t, e, "")
	require.Equal(t, http.StatusUnauthorized, api.raw(http.MethodGet, "/api/v1/notification/list", nil).Code)

	api.token = "forged"
	require.Equal(t, http.StatusUnauthorized, api.raw(http.MethodGet, "/api/v1/notification/list", nil).Code)
}

func TestHandlers_NotificationLifecycle(t *testing.T) {
	req := require.New(t)
	e, tokens := newTestEngine(t)
	api := newAPIClient(t, e, issue(t, tokens, "u1"))
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"first", "second", "third"} {
		res, err := e.Dispatcher.Dispatch(ctx, service.Input{UserID: "u1", Type: "comment", Title: title})
		req.NoError(err)
		ids = append(ids, res.Record.ID)
	}

	var count map[string]int64
	req.Zero(api.do(http.MethodGet, "/api/v1/notification/unread_count", nil, &count).Code)
	req.EqualValues(3, count["count"])

	var marked MarkReadResp
	resp := api.do(http.MethodPost, "/api/v1/notification/read", MarkNotificationsReadReq{IDs: []string{ids[0], ids[0], "missing"}}, &marked)
	req.Zero(resp.Code)
	req.Equal([]string{ids[0]}, marked.Updated)
	req.Equal([]string{"missing"}, marked.NotFound)

	var page NotificationPage
	req.Zero(api.do(http.MethodGet, "/api/v1/notification/list?unread_only=true", nil, &page).Code)
	req.Len(page.Items, 2)
	req.Zero(page.NextCursor)

	req.Zero(api.do(http.MethodGet, "/api/v1/notification/list?limit=2", nil, &page).Code)
	req.Len(page.Items, 2)
	req.NotZero(page.NextCursor)

	var rest NotificationPage
	req.Zero(api.do(http.MethodGet, "/api/v1/notification/list?limit=2&cursor="+page.NextCursor, nil, &rest).Code)
	req.Len(rest.Items, 1)
	req.Zero(rest.NextCursor)

	var one models.Notification
	req.Zero(api.do(http.MethodGet, "/api/v1/notification/detail?id="+ids[0], nil, &one).Code)
	req.Equal("first", one.Title)
	req.True(one.Read)
	req.Equal(response.CodeNotFound, api.do(http.MethodGet, "/api/v1/notification/detail?id=missing", nil, nil).Code)
	req.Equal(response.CodeParamError, api.do(http.MethodGet, "/api/v1/notification/detail", nil, nil).Code)

	var all map[string]int64
	req.Zero(api.do(http.MethodPost, "/api/v1/notification/read_all", nil, &all).Code)
	req.EqualValues(2, all["updated"])

	req.Zero(api.do(http.MethodGet, "/api/v1/notification/unread_count", nil, &count).Code)
	req.Zero(count["count"])

	resp = api.do(http.MethodPost, "/api/v1/notification/read", map[string]any{"ids": []string{}}, nil)
	req.Equal(response.CodeParamError, resp.Code)

	resp = api.do(http.MethodGet, "/api/v1/notification/list?cursor=abc", nil, nil)
	req.Equal(response.CodeParamError, resp.Code)
}

func TestHandlers_Preferences(t *testing.T) {
	req := require.New(t)
	e, tokens := newTestEngine(t)
	api := newAPIClient(t, e, issue(t, tokens, "u1"))

	var p service.Preferences
	req.Zero(api.do(http.MethodGet, "/api/v1/notification/preferences", nil, &p).Code)
	req.Equal(service.DefaultPreferences, p)

	off := false
	req.Zero(api.do(http.MethodPost, "/api/v1/notification/preferences", UpdatePreferencesReq{PushEnabled: &off}, &p).Code)
	req.Equal(service.Preferences{EmailEnabled: true, PushEnabled: false}, p)

	p = service.Preferences{}
	req.Zero(api.do(http.MethodGet, "/api/v1/notification/preferences", nil, &p).Code)
	req.True(p.EmailEnabled)
	req.False(p.PushEnabled)
}

func TestHandlers_Dispatch(t *testing.T) {
	req := require.New(t)
	e, _ := newTestEngine(t, WithInternalKey("svc-key"))
	api := newAPIClient(t, e, "")
	api.internalKey = "svc-key"
	ctx := context.Background()
	req.NoError(e.ProjectService.AddMember(ctx, "p1", "u1", "owner"))
	req.NoError(e.ProjectService.AddMember(ctx, "p1", "u2", "member"))

	var items []DispatchItem
	resp := api.do(http.MethodPost, "/api/v1/notification/dispatch", DispatchReq{
		UserIDs: []string{"u3", "u4", "u3", ""},
		Type:    "mention",
		Title:   "you were mentioned",
	}, &items)
	req.Zero(resp.Code)
	req.Len(items, 2)
	req.Equal("u3", items[0].UserID)
	req.NotEmpty(items[0].NotificationID)
	req.Equal("skipped", items[0].Deliveries.Realtime.Status)

	items = nil
	resp = api.do(http.MethodPost, "/api/v1/notification/dispatch", DispatchReq{
		ProjectID:     "p1",
		ExcludeUserID: "u1",
		Type:          "task_assigned",
		Title:         "task moved",
		Data:          map[string]any{"task_id": "t1"},
	}, &items)
	req.Zero(resp.Code)
	req.Len(items, 1)
	req.Equal("u2", items[0].UserID)

	resp = api.do(http.MethodPost, "/api/v1/notification/dispatch", DispatchReq{Type: "x", Title: "y"}, nil)
	req.Equal(response.CodeParamError, resp.Code)

	resp = api.do(http.MethodPost, "/api/v1/notification/dispatch", map[string]any{"user_ids": []string{"u1"}}, nil)
	req.Equal(response.CodeParamError, resp.Code, "type and title are required")

	var res map[string]any
	req.Zero(api.do(http.MethodPost, "/api/v1/project/update", ProjectUpdateReq{ProjectID: "p1", Payload: map[string]any{"status": "archived"}}, &res).Code)
	req.Equal(response.CodeParamError, api.do(http.MethodPost, "/api/v1/project/update", ProjectUpdateReq{}, nil).Code)
}

func TestHandlers_InternalRoutesRefuseUserTokens(t *testing.T) {
	req := require.New(t)
	e, tokens := newTestEngine(t, WithInternalKey("svc-key"))
	ctx := context.Background()
	req.NoError(e.ProjectService.AddMember(ctx, "p1", "victim", "member"))
	user := newAPIClient(t, e, issue(t, tokens, "mallory"))

	w := user.raw(http.MethodPost, "/api/v1/notification/dispatch", DispatchReq{UserIDs: []string{"victim"}, Type: "x", Title: "click here"})
	req.Equal(http.StatusForbidden, w.Code)
	w = user.raw(http.MethodPost, "/api/v1/project/update", ProjectUpdateReq{ProjectID: "p1"})
	req.Equal(http.StatusForbidden, w.Code)

	user.internalKey = "guess"
	w = user.raw(http.MethodPost, "/api/v1/notification/dispatch", DispatchReq{UserIDs: []string{"victim"}, Type: "x", Title: "click here"})
	req.Equal(http.StatusForbidden, w.Code)

	n, err := e.NotificationService.Count(ctx, "victim", true)
	req.NoError(err)
	req.Zero(n)
}

func TestHandlers_InternalRoutesUnmountedWithoutKey(t *testing.T) {
	e, tokens := newTestEngine(t)
	user := newAPIClient(t, e, issue(t, tokens, "u1"))
	require.Equal(t, http.StatusNotFound, user.raw(http.MethodPost, "/api/v1/notification/dispatch", DispatchReq{UserIDs: []string{"u2"}, Type: "x", Title: "y"}).Code)
	require.Equal(t, http.StatusNotFound, user.raw(http.MethodPost, "/api/v1/project/update", ProjectUpdateReq{ProjectID: "p1"}).Code)
}

func TestHandlers_CustomInternalAuth(t *testing.T) {
	e, _ := newTestEngine(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	e.RegisterGinRoutes(r, RouteOptions{InternalAuth: func(c *gin.Context) {
		if c.GetHeader("X-Service") != "billing" {
			c.AbortWithStatus(http.StatusForbidden)
		}
	}})
	api := &apiClient{t: t, h: r}

	require.Equal(t, http.StatusForbidden, api.raw(http.MethodPost, "/api/v1/project/update", ProjectUpdateReq{ProjectID: "p1"}).Code)

	body, _ := json.Marshal(ProjectUpdateReq{ProjectID: "p1"})
	hr := httptest.NewRequest(http.MethodPost, "/api/v1/project/update", bytes.NewReader(body))
	hr.Header.Set("Content-Type", "application/json")
	hr.Header.Set("X-Service", "billing")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, hr)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandlers_PresenceAndDevices(t *testing.T) {
	req := require.New(t)
	e, tokens := newTestEngine(t)
	ctx := context.Background()
	req.NoError(e.ProjectService.AddMember(ctx, "p1", "u1", "member"))
	api := newAPIClient(t, e, issue(t, tokens, "u1"))

	var up UserPresenceResp
	req.Zero(api.do(http.MethodGet, "/api/v1/presence/user?user_id=u2", nil, &up).Code)
	req.False(up.Online)
	req.Equal(response.CodeParamError, api.do(http.MethodGet, "/api/v1/presence/user", nil, nil).Code)

	var pp ProjectPresenceResp
	req.Zero(api.do(http.MethodGet, "/api/v1/presence/project?project_id=p1", nil, &pp).Code)
	req.Empty(pp.Online)
	req.Equal(response.CodePermissionDeny, api.do(http.MethodGet, "/api/v1/presence/project?project_id=p9", nil, nil).Code)

	req.Zero(api.do(http.MethodPost, "/api/v1/push/device", RegisterDeviceReq{Token: "dev-1", Platform: "ios"}, nil).Code)
	toks, err := e.DeviceService.TokensOf(ctx, "u1")
	req.NoError(err)
	req.Equal([]string{"dev-1"}, toks)
	req.Equal(response.CodeParamError,
		api.do(http.MethodPost, "/api/v1/push/device", RegisterDeviceReq{Token: "dev-2", Platform: "symbian"}, nil).Code)

	req.Zero(api.do(http.MethodPost, "/api/v1/push/device/delete", UnregisterDeviceReq{Token: "dev-1"}, nil).Code)
	toks, err = e.DeviceService.TokensOf(ctx, "u1")
	req.NoError(err)
	req.Empty(toks)
}

func TestRoutes_MetricsAndSwagger(t *testing.T) {
	req := require.New(t)
	m := metrics.New(config.MetricsConfig{Namespace: "presence_test"})
	e, tokens := newTestEngine(t, WithMetrics(m))
	api := newAPIClient(t, e, issue(t, tokens, "u1"))

	api.do(http.MethodGet, "/api/v1/notification/unread_count", nil, nil)

	w := api.raw(http.MethodGet, "/metrics", nil)
	req.Equal(http.StatusOK, w.Code)
	req.True(strings.Contains(w.Body.String(), "presence_test_"), w.Body.String())

	w = api.raw(http.MethodGet, "/swagger/doc.json", nil)
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), "/notification/dispatch")
}
