package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is one issued bearer token owned by a single user.
// A user's sessions ordered by IssuedAt form their active token list.
type Session struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:char(36);not null;uniqueIndex:idx_user_sessions_user_token,priority:1"`
	Token     string    `json:"-" gorm:"size:512;not null;uniqueIndex:idx_user_sessions_user_token,priority:2"`
	IssuedAt  time.Time `json:"issuedAt" gorm:"not null;index"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null;index"`
}

func (Session) TableName() string { return "user_sessions" }

// BeforeCreate sets UUID before creating the record.
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
