package cons

// Outbound WebSocket event types.
const (
	EventNotification        = "notification"   // persisted notification for the user
	EventProjectUpdate       = "project_update" // project-wide change broadcast to project:<id>
	EventAuthenticated       = "authenticated"
	EventAuthenticationError = "authentication_error"
	EventJoined              = "joined"
	EventLeft                = "left"
	EventError               = "error"
)

// Delivery channels of a dispatch.
const (
	ChannelRealtime = "realtime"
	ChannelPush     = "push"
	ChannelEmail    = "email"
)

// Delivery outcome statuses.
const (
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)
