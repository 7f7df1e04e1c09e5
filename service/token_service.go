package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/blake2b"
)

const defaultTokenTTL = 7 * 24 * time.Hour

// TokenService verifies opaque bearer tokens issued by the host application
// and stored in redis. Tokens are never stored in clear:
//   - presence:token:{blake2b(token)} -> userID (String, TTL)
//   - presence:user_tokens:{userID}   -> Set(blake2b(token)...) (Set, TTL)
//
// Single-token revoke deletes one key; revoking every session of a user walks
// the set.
type TokenService struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTokenService(rdb *redis.Client, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{rdb: rdb, ttl: ttl}
}

func (s *TokenService) ensure() error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	return nil
}

func hashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *TokenService) tokenKey(hash string) string {
	return "presence:token:" + hash
}

func (s *TokenService) userTokensKey(userID string) string {
	return "presence:user_tokens:" + userID
}

// GenerateToken returns a random token carrying no user information.
func (s *TokenService) GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Issue generates a token for userID and stores it.
func (s *TokenService) Issue(ctx context.Context, userID string) (string, error) {
	token, err := s.GenerateToken()
	if err != nil {
		return "", err
	}
	if err := s.StoreToken(ctx, token, userID, 0); err != nil {
		return "", err
	}
	return token, nil
}

// StoreToken saves token -> userID and adds it to the user's token set.
func (s *TokenService) StoreToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.ensure(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	h := hashToken(token)
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.tokenKey(h), userID, ttl)
	pipe.SAdd(ctx, s.userTokensKey(userID), h)
	pipe.Expire(ctx, s.userTokensKey(userID), ttl+24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// Verify resolves token to its user id.
func (s *TokenService) Verify(ctx context.Context, token string) (string, error) {
	if err := s.ensure(); err != nil {
		return "", err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenInvalid
	}
	uid, err := s.rdb.Get(ctx, s.tokenKey(hashToken(token))).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", err
	}
	return uid, nil
}

// RevokeToken removes a single token. Unknown tokens are ignored.
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	uid, err := s.Verify(ctx, token)
	if errors.Is(err, ErrTokenInvalid) {
		return nil
	}
	if err != nil {
		return err
	}
	h := hashToken(token)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.tokenKey(h))
	pipe.SRem(ctx, s.userTokensKey(uid), h)
	_, err = pipe.Exec(ctx)
	return err
}

// RevokeAllTokensByUser removes every token of userID.
func (s *TokenService) RevokeAllTokensByUser(ctx context.Context, userID string) error {
	if err := s.ensure(); err != nil {
		return err
	}
	hashes, err := s.rdb.SMembers(ctx, s.userTokensKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, h := range hashes {
		pipe.Del(ctx, s.tokenKey(h))
	}
	pipe.Del(ctx, s.userTokensKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
