package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T) (*TokenService, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewTokenService(rdb, time.Hour), mr
}

func TestTokenService_IssueVerifyRevoke(t *testing.T) {
	req := require.New(t)
	svc, mr := newTokenService(t)
	ctx := context.Background()

	token, err := svc.Issue(ctx, "u1")
	req.NoError(err)
	req.Len(token, 64)

	uid, err := svc.Verify(ctx, token)
	req.NoError(err)
	req.Equal("u1", uid)

	// only the hash is stored
	req.False(mr.Exists("presence:token:" + token))
	req.True(mr.Exists("presence:token:" + hashToken(token)))

	req.NoError(svc.RevokeToken(ctx, token))
	_, err = svc.Verify(ctx, token)
	req.ErrorIs(err, ErrTokenInvalid)
	req.NoError(svc.RevokeToken(ctx, token), "revoking twice is a no-op")
}

func TestTokenService_Expiry(t *testing.T) {
	svc, mr := newTokenService(t)
	ctx := context.Background()

	require.NoError(t, svc.StoreToken(ctx, "abc", "u1", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := svc.Verify(ctx, "abc")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_RevokeAllTokensByUser(t *testing.T) {
	req := require.New(t)
	svc, _ := newTokenService(t)
	ctx := context.Background()

	t1, err := svc.Issue(ctx, "u1")
	req.NoError(err)
	t2, err := svc.Issue(ctx, "u1")
	req.NoError(err)
	other, err := svc.Issue(ctx, "u2")
	req.NoError(err)

	req.NoError(svc.RevokeAllTokensByUser(ctx, "u1"))
	for _, tok := range []string{t1, t2} {
		_, err := svc.Verify(ctx, tok)
		req.ErrorIs(err, ErrTokenInvalid)
	}
	uid, err := svc.Verify(ctx, other)
	req.NoError(err)
	req.Equal("u2", uid)

	req.NoError(svc.RevokeAllTokensByUser(ctx, "nobody"))
}

func TestTokenService_NilClient(t *testing.T) {
	svc := NewTokenService(nil, 0)
	_, err := svc.Verify(context.Background(), "x")
	require.Error(t, err)
}
