package domain

import (
	"fmt"
	"strings"
	"time"
)

// Field length limits for inbound events (in characters).
const (
	MaxServiceLen = 100
	MaxEventLen   = 100
	MaxMessageLen = 1000
)

// Notification is the core domain entity: one accepted webhook event.
type Notification struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Service   string    `gorm:"type:varchar(100);not null"`
	Event     string    `gorm:"type:varchar(100)"`
	Error     bool      `gorm:"not null;default:false"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Validate checks field presence and length rules. Every missing required
// field is reported in a single message so callers see the full list at once.
func (n *Notification) Validate() error {
	missing := make([]string, 0, 2)
	if n.Service == "" {
		missing = append(missing, "'service'")
	}
	if n.Message == "" {
		missing = append(missing, "'message'")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: Missing required fields: %s", ErrValidation, strings.Join(missing, " and "))
	}

	if serviceLen := len([]rune(n.Service)); serviceLen > MaxServiceLen {
		return fmt.Errorf("%w: service exceeds %d characters (got %d)", ErrValidation, MaxServiceLen, serviceLen)
	}
	if eventLen := len([]rune(n.Event)); eventLen > MaxEventLen {
		return fmt.Errorf("%w: event exceeds %d characters (got %d)", ErrValidation, MaxEventLen, eventLen)
	}
	if messageLen := len([]rune(n.Message)); messageLen > MaxMessageLen {
		return fmt.Errorf("%w: message exceeds %d characters (got %d)", ErrValidation, MaxMessageLen, messageLen)
	}

	return nil
}
