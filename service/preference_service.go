package service

import (
	"context"
	"errors"
	"time"

	"github.com/cydxin/presence-sdk/models"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Preferences are the per-user channel switches consulted before push and email.
type Preferences struct {
	EmailEnabled bool `json:"email_enabled"`
	PushEnabled  bool `json:"push_enabled"`
}

// DefaultPreferences apply to users that never saved any: everything on.
var DefaultPreferences = Preferences{EmailEnabled: true, PushEnabled: true}

type PreferenceResolver interface {
	Resolve(ctx context.Context, userID string) (Preferences, error)
}

// PreferenceService reads preferences from the database, optionally through a
// redis hash cache:
//   - presence:pref:{userID} -> {email: 0|1, push: 0|1} (TTL)
type PreferenceService struct {
	*Service
	cacheTTL time.Duration
	logger   *zap.Logger
}

var _ PreferenceResolver = (*PreferenceService)(nil)

// NewPreferenceService builds the resolver. A zero cacheTTL or a nil RDB
// disables the cache.
func NewPreferenceService(s *Service, cacheTTL time.Duration) *PreferenceService {
	return &PreferenceService{Service: s, cacheTTL: cacheTTL, logger: s.log("preference")}
}

func (s *PreferenceService) cacheKey(userID string) string {
	return "presence:pref:" + userID
}

func (s *PreferenceService) cached() bool {
	return s.RDB != nil && s.cacheTTL > 0
}

// Resolve returns the user's preferences, or DefaultPreferences when none are
// stored. On a store error the defaults are returned together with the error.
func (s *PreferenceService) Resolve(ctx context.Context, userID string) (Preferences, error) {
	if s.cached() {
		if p, ok := s.fromCache(ctx, userID); ok {
			return p, nil
		}
	}

	var row models.NotificationPreference
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	var p Preferences
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		p = DefaultPreferences
	case err != nil:
		return DefaultPreferences, err
	default:
		p = Preferences{EmailEnabled: row.EmailEnabled, PushEnabled: row.PushEnabled}
	}

	if s.cached() {
		s.toCache(ctx, userID, p)
	}
	return p, nil
}

// Update stores p for userID and drops the cached copy.
func (s *PreferenceService) Update(ctx context.Context, userID string, p Preferences) error {
	if userID == "" {
		return ErrInvalidInput
	}
	row := models.NotificationPreference{
		UserID:       userID,
		EmailEnabled: p.EmailEnabled,
		PushEnabled:  p.PushEnabled,
		UpdatedAt:    time.Now(),
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email_enabled", "push_enabled", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}

	if s.RDB != nil {
		if err := s.RDB.Del(ctx, s.cacheKey(userID)).Err(); err != nil {
			s.logger.Warn("drop cached preferences", zap.String("user", userID), zap.Error(err))
		}
	}
	return nil
}

func (s *PreferenceService) fromCache(ctx context.Context, userID string) (Preferences, bool) {
	vals, err := s.RDB.HGetAll(ctx, s.cacheKey(userID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("read cached preferences", zap.String("user", userID), zap.Error(err))
		}
		return Preferences{}, false
	}
	email, okE := vals["email"]
	push, okP := vals["push"]
	if !okE || !okP {
		return Preferences{}, false
	}
	return Preferences{EmailEnabled: email == "1", PushEnabled: push == "1"}, true
}

func (s *PreferenceService) toCache(ctx context.Context, userID string, p Preferences) {
	key := s.cacheKey(userID)
	pipe := s.RDB.TxPipeline()
	pipe.HSet(ctx, key, "email", flag(p.EmailEnabled), "push", flag(p.PushEnabled))
	pipe.Expire(ctx, key, s.cacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("cache preferences", zap.String("user", userID), zap.Error(err))
	}
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
