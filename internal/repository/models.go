package repository

import (
	"time"

	"github.com/mkarpenko/hookrelay/internal/domain"
)

// NotificationModel is the persistence model for the notifications table.
type NotificationModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Service   string    `gorm:"type:varchar(100);not null"`
	Event     string    `gorm:"type:varchar(100)"`
	Error     bool      `gorm:"not null;default:false"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (NotificationModel) TableName() string {
	return "notifications"
}

func notificationModelFromDomain(n *domain.Notification) *NotificationModel {
	if n == nil {
		return nil
	}

	// ID and CreatedAt are deliberately not copied: both are assigned by the
	// store at insert time and never client-supplied.
	return &NotificationModel{
		Service: n.Service,
		Event:   n.Event,
		Error:   n.Error,
		Message: n.Message,
	}
}

func notificationModelToDomain(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}

	return &domain.Notification{
		ID:        m.ID,
		Service:   m.Service,
		Event:     m.Event,
		Error:     m.Error,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}
