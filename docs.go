// Package presence_sdk tracks live WebSocket connections, their rooms and
// presence, and fans notifications out over realtime, push and email.
// @title Presence SDK API
// @version 1.0
// @description Presence and notification fanout API.
// @description
// @description ## Business codes
// @description | Code | Meaning |
// @description |------|---------|
// @description | 0 | success |
// @description | 10001 | invalid parameter |
// @description | 10002 | not found |
// @description | 10004 | invalid token |
// @description | 10005 | permission denied |
// @description | 99999 | internal error |
// @description
// @description Handlers answer HTTP 200 and report failures through `code`;
// @description the auth middleware answers 401.
//
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer <token>
//
// @securityDefinitions.apikey QueryToken
// @in query
// @name token
// @description for WebSocket clients that cannot set headers
//
// @securityDefinitions.apikey InternalKey
// @in header
// @name X-Internal-Key
// @description shared key of trusted backend callers
package presence_sdk
