package response

// Response is the envelope of every HTTP reply.
type Response struct {
	Code int         `json:"code" example:"0"`
	Msg  string      `json:"msg" example:"success"`
	Data interface{} `json:"data,omitempty" swaggertype:"object"`
}

// Business codes. Middleware failures use HTTP status codes (401/500);
// handlers answer HTTP 200 with one of these.
const (
	CodeSuccess        = 0
	CodeParamError     = 10001
	CodeNotFound       = 10002
	CodeTokenInvalid   = 10004
	CodePermissionDeny = 10005
	CodeInternalError  = 99999
)

// Success wraps data; an optional trailing argument replaces the message.
func Success(data interface{}, args ...string) *Response {
	msg := "success"
	for _, arg := range args {
		msg = arg
	}
	return &Response{
		Code: CodeSuccess,
		Msg:  msg,
		Data: data,
	}
}

func Error(code int, msg string) *Response {
	return &Response{
		Code: code,
		Msg:  msg,
	}
}
