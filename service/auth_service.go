package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cydxin/presence-sdk/hub"
)

// AuthService is the credential check shared by the HTTP middleware and the
// WebSocket handshake. Token issuance belongs to the host application.
//   - token lookup: Authorization: Bearer first, then ?token=
//   - verification: delegated to a hub.IdentityVerifier (redis tokens or JWT)
type AuthService struct {
	verifier hub.IdentityVerifier
}

var _ hub.IdentityVerifier = (*AuthService)(nil)

func NewAuthService(v hub.IdentityVerifier) *AuthService {
	return &AuthService{verifier: v}
}

// Default request keys of TokenFromRequest.
const (
	DefaultTokenHeader = "Authorization"
	DefaultTokenQuery  = "token"
)

// ExtractToken reads the token from the Authorization header or ?token=.
func (a *AuthService) ExtractToken(r *http.Request) string {
	return TokenFromRequest(r, DefaultTokenHeader, DefaultTokenQuery)
}

// TokenFromRequest returns the bearer token of headerKey, falling back to the
// queryKey parameter. Non-bearer schemes are ignored.
func TokenFromRequest(r *http.Request, headerKey, queryKey string) string {
	if r == nil {
		return ""
	}
	if scheme, tok, ok := strings.Cut(strings.TrimSpace(r.Header.Get(headerKey)), " "); ok && strings.EqualFold(scheme, "Bearer") {
		if tok = strings.TrimSpace(tok); tok != "" {
			return tok
		}
	}
	if r.URL == nil {
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get(queryKey))
}

// Verify resolves token to a user id.
func (a *AuthService) Verify(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: missing token", ErrTokenInvalid)
	}
	if a == nil || a.verifier == nil {
		return "", fmt.Errorf("no identity verifier configured")
	}
	return a.verifier.Verify(ctx, token)
}

// AuthenticateRequest extracts and verifies the request token.
func (a *AuthService) AuthenticateRequest(ctx context.Context, r *http.Request) (string, string, error) {
	t := a.ExtractToken(r)
	uid, err := a.Verify(ctx, t)
	return uid, t, err
}
