package models

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTablePrefixInUse is returned when a second, different prefix is set.
var ErrTablePrefixInUse = errors.New("table prefix already in use")

// The prefix is process wide: gorm caches each model's table name on first
// parse, so it cannot differ between engines.
var (
	prefixMu  sync.RWMutex
	prefix    = "rt_"
	prefixSet bool
)

// SetTablePrefix fixes the prefix of every table name for the process. The
// first call wins; repeating it with the same prefix is fine, a different one
// fails with ErrTablePrefixInUse. An empty prefix is ignored.
func SetTablePrefix(p string) error {
	if p == "" {
		return nil
	}
	prefixMu.Lock()
	defer prefixMu.Unlock()
	if prefixSet && p != prefix {
		return fmt.Errorf("%w: %q, got %q", ErrTablePrefixInUse, prefix, p)
	}
	prefix, prefixSet = p, true
	return nil
}

func TablePrefix() string {
	prefixMu.RLock()
	defer prefixMu.RUnlock()
	return prefix
}

// User is read-only here: the host application owns the account lifecycle.
// The mailer uses it to address email.
type User struct {
	ID        string `gorm:"primarykey;size:36"`
	Email     string `gorm:"size:100;index"`
	Name      string `gorm:"size:100"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return TablePrefix() + "user"
}

// ProjectMember links a user to a project. One row per (project, user).
type ProjectMember struct {
	ID        uint64 `gorm:"primarykey"`
	ProjectID string `gorm:"size:36;not null;uniqueIndex:idx_project_user,priority:1"`
	UserID    string `gorm:"size:36;not null;uniqueIndex:idx_project_user,priority:2;index"`
	Role      string `gorm:"size:32"`
	CreatedAt time.Time
}

func (ProjectMember) TableName() string {
	return TablePrefix() + "project_member"
}

// NotificationPreference holds the per-user channel switches. A user without a
// row receives everything.
type NotificationPreference struct {
	UserID       string `gorm:"primarykey;size:36" json:"user_id"`
	EmailEnabled bool   `gorm:"not null" json:"email_enabled"`
	PushEnabled  bool   `gorm:"not null" json:"push_enabled"`
	UpdatedAt    time.Time
}

func (NotificationPreference) TableName() string {
	return TablePrefix() + "notification_preference"
}

// PushDevice is a registered mobile push token.
type PushDevice struct {
	ID        uint64 `gorm:"primarykey" json:"id"`
	UserID    string `gorm:"size:36;not null;index" json:"user_id"`
	Token     string `gorm:"size:255;not null;uniqueIndex" json:"token"`
	Platform  string `gorm:"size:16" json:"platform"` // ios / android / web
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PushDevice) TableName() string {
	return TablePrefix() + "push_device"
}

// All lists every table for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&ProjectMember{},
		&NotificationPreference{},
		&PushDevice{},
		&Notification{},
	}
}
