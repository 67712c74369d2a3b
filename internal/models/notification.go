package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one row in the append-only notification queue
type Notification struct {
	ID        string    `json:"id" badgerhold:"key"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotification creates a notification row
func NewNotification(text string) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		Text:      text,
		CreatedAt: time.Now(),
	}
}
