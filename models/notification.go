package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification is the durable record of one notification addressed to one
// user. It is written before any delivery is attempted, so a client that was
// offline can always fetch it over HTTP later.
type Notification struct {
	ID        string         `gorm:"primarykey;size:36" json:"id"`
	UserID    string         `gorm:"size:36;not null;index:idx_user_created,priority:1" json:"user_id"`
	Type      string         `gorm:"size:64;not null;index" json:"type"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	Data      datatypes.JSON `gorm:"type:json" json:"data,omitempty" swaggertype:"object"`
	Read      bool           `gorm:"column:is_read;not null;index" json:"read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `gorm:"index:idx_user_created,priority:2" json:"created_at"`
}

func (Notification) TableName() string { return TablePrefix() + "notification" }

// BeforeCreate assigns a uuid when the caller did not.
func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
