package message

// Inbound WebSocket message types (client -> server).
const (
	WsTypeAuthenticate = "authenticate"
	WsTypeJoinProject  = "join_project"
	WsTypeJoinMedia    = "join_media"
	WsTypeLeaveMedia   = "leave_media"
)

// Inbound is the union of every client message. Only the fields relevant to
// Type are read.
type Inbound struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`      // authenticate
	ProjectID string `json:"project_id,omitempty"` // join_project
	MediaID   string `json:"media_id,omitempty"`   // join_media / leave_media
}

// AuthErrorResp is the data of an authentication_error event. The connection
// is closed right after it is sent.
type AuthErrorResp struct {
	Reason string `json:"reason"`
}

// RoomResp is the data of joined / left.
type RoomResp struct {
	Room string `json:"room"`
}

// ErrorResp is the data of a non-fatal error event.
type ErrorResp struct {
	Request string `json:"request,omitempty"` // type of the inbound message that failed
	Error   string `json:"error"`
}
