package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cydxin/presence-sdk/models"
	"gorm.io/gorm"
)

// NotificationStore is the durable side of a notification. Create must have
// committed before Dispatch fans anything out.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Count(ctx context.Context, userID string, unreadOnly bool) (int64, error)
	List(ctx context.Context, userID string, q ListQuery) (Page, error)
}

// ListQuery pages through a user's notifications, newest first.
// Cursor is the NextCursor of the previous page; empty starts from the newest.
type ListQuery struct {
	UnreadOnly bool
	Cursor     string
	Limit      int
}

// Page is one slice of List. NextCursor is empty on the last page.
type Page struct {
	Items      []models.Notification
	NextCursor string
}

// pageKey is the (created_at, id) position of a row in list order.
type pageKey struct {
	CreatedAt time.Time
	ID        string
}

func (k pageKey) encode() string {
	return base64.RawURLEncoding.EncodeToString([]byte(k.CreatedAt.Format(time.RFC3339Nano) + "|" + k.ID))
}

func decodePageKey(cursor string) (pageKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return pageKey{}, fmt.Errorf("%w: cursor", ErrInvalidInput)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return pageKey{}, fmt.Errorf("%w: cursor", ErrInvalidInput)
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return pageKey{}, fmt.Errorf("%w: cursor", ErrInvalidInput)
	}
	return pageKey{CreatedAt: t, ID: id}, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// NotificationService stores notifications with gorm.
type NotificationService struct {
	*Service
}

var _ NotificationStore = (*NotificationService)(nil)

func NewNotificationService(s *Service) *NotificationService {
	return &NotificationService{Service: s}
}

func (s *NotificationService) Create(ctx context.Context, n *models.Notification) error {
	if n == nil || n.UserID == "" {
		return ErrInvalidInput
	}
	return s.DB.WithContext(ctx).Create(n).Error
}

// MarkRead marks one notification of userID as read. Marking an already read
// notification is not an error; another user's notification is not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	now := time.Now()
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]any{"is_read": true, "read_at": &now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var exists int64
	if err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of userID and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	now := time.Now()
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": &now})
	return res.RowsAffected, res.Error
}

func (s *NotificationService) Count(ctx context.Context, userID string, unreadOnly bool) (int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// List returns one page. The cursor keys on (created_at, id) at the
// precision the database stores, so rows sharing a timestamp are not skipped.
func (s *NotificationService) List(ctx context.Context, userID string, lq ListQuery) (Page, error) {
	if userID == "" {
		return Page{}, ErrInvalidInput
	}
	limit := lq.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if lq.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if lq.Cursor != "" {
		k, err := decodePageKey(lq.Cursor)
		if err != nil {
			return Page{}, err
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", k.CreatedAt, k.CreatedAt, k.ID)
	}

	var rows []models.Notification
	if err := q.Order("created_at desc").Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return Page{}, err
	}
	page := Page{Items: rows}
	if n := len(rows); n == limit {
		page.NextCursor = pageKey{CreatedAt: rows[n-1].CreatedAt, ID: rows[n-1].ID}.encode()
	}
	return page, nil
}

// Get returns one notification of userID.
func (s *NotificationService) Get(ctx context.Context, userID, id string) (*models.Notification, error) {
	var n models.Notification
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}
