package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/premiumcity-backend/pkg/enums"
)

// EmailOutbox is a queued email awaiting delivery by the worker.
type EmailOutbox struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Recipient     string                  `gorm:"column:recipient;not null"`
	Subject       string                  `gorm:"column:subject;not null"`
	BodyText      string                  `gorm:"column:body_text;not null"`
	BodyHTML      *string                 `gorm:"column:body_html"`
	Status        enums.EmailOutboxStatus `gorm:"column:status;type:text;not null;default:PENDING;index"`
	AttemptCount  int                     `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                 `gorm:"column:last_error"`
	NextAttemptAt *time.Time              `gorm:"column:next_attempt_at"`
	SentAt        *time.Time              `gorm:"column:sent_at"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (EmailOutbox) TableName() string {
	return "email_outbox"
}

func (e *EmailOutbox) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
