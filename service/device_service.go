package service

import (
	"context"
	"strings"
	"time"

	"github.com/cydxin/presence-sdk/models"
	"gorm.io/gorm/clause"
)

// DeviceService keeps the push tokens of each user.
type DeviceService struct {
	*Service
}

func NewDeviceService(s *Service) *DeviceService {
	return &DeviceService{Service: s}
}

// Register binds a push token to userID. A token moves to the last user that
// registered it.
func (s *DeviceService) Register(ctx context.Context, userID, token, platform string) error {
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return ErrInvalidInput
	}
	now := time.Now()
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
	}).Create(&models.PushDevice{
		UserID:    userID,
		Token:     token,
		Platform:  strings.ToLower(platform),
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}

func (s *DeviceService) Unregister(ctx context.Context, userID, token string) error {
	return s.DB.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&models.PushDevice{}).Error
}

func (s *DeviceService) TokensOf(ctx context.Context, userID string) ([]string, error) {
	var tokens []string
	err := s.DB.WithContext(ctx).Model(&models.PushDevice{}).
		Where("user_id = ?", userID).
		Order("id").
		Pluck("token", &tokens).Error
	return tokens, err
}
