package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier("s3cret", "presence")
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		tok, err := v.Sign("u1", time.Minute)
		require.NoError(t, err)
		uid, err := v.Verify(ctx, tok)
		require.NoError(t, err)
		require.Equal(t, "u1", uid)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := v.Sign("u1", -time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(ctx, tok)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewJWTVerifier("other", "presence")
		tok, err := other.Sign("u1", time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(ctx, tok)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, _ := NewJWTVerifier("s3cret", "elsewhere")
		tok, err := other.Sign("u1", time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(ctx, tok)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("no subject", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Issuer:    "presence",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = v.Verify(ctx, tok)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	_, err = NewJWTVerifier("", "")
	require.Error(t, err)
}
