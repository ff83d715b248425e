package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
)

// ChatRoom belongs to exactly one user. Rooms are never physically
// removed; "deleting" a room flips IsActive off and keeps its messages.
type ChatRoom struct {
  gorm.Model
  ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"-"`
  UserID        uuid.UUID       `gorm:"index;not null" json:"-"`
  RoomID        string          `gorm:"uniqueIndex;not null;column:room_id" json:"roomId"`
  Title         string          `gorm:"not null;column:title" json:"title"`
  IsActive      bool            `gorm:"not null;default:true;column:is_active" json:"isActive"`
  LastActivity  time.Time       `gorm:"not null;column:last_activity" json:"lastActivity"`

  Messages      []*ChatMessage  `gorm:"constraint:OnDelete:CASCADE;foreignKey:RoomID;references:ID" json:"messages,omitempty"`

  CreatedAt     time.Time       `gorm:"not null;default:now()" json:"createdAt"`
  UpdatedAt     time.Time       `gorm:"not null;default:now()" json:"updatedAt"`
}

func (ChatRoom) TableName() string {
  return "chat_room"
}
