package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
)

type UserToken struct {
  gorm.Model
  ID            uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID        uuid.UUID   `gorm:"index;not null" json:"userID"`
  AccessToken   string      `gorm:"uniqueIndex;not null;column:access_token" json:"-"`
  RefreshToken  string      `gorm:"uniqueIndex;not null;column:refresh_token" json:"-"`
  ExpiresAt     time.Time   `gorm:"not null;column:expires_at" json:"expiresAt"`

  CreatedAt     time.Time   `gorm:"not null;default:now()" json:"createdAt"`
  UpdatedAt     time.Time   `gorm:"not null;default:now()" json:"updatedAt"`
}

func (UserToken) TableName() string {
  return "user_token"
}
