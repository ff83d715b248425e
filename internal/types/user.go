package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
)

const (
  RoleUser      = "user"
  RoleAdmin     = "admin"
  RoleModerator = "moderator"

  RagSystemNative    = "native"
  RagSystemLangChain = "langchain"

  DefaultMaxRoomsLimit = 10
)

// RagPreferences is embedded in User so every loaded user always has a
// well defined preference block. Defaults are applied at construction,
// never lazily on read.
type RagPreferences struct {
  DefaultSystem string `gorm:"column:default_system" json:"defaultSystem"`
  Language      string `gorm:"column:language" json:"language"`
  Theme         string `gorm:"column:theme" json:"theme"`
  SaveHistory   bool   `gorm:"column:save_history" json:"saveHistory"`
  MaxRoomsLimit int    `gorm:"column:max_rooms_limit" json:"maxRoomsLimit"`
}

func DefaultRagPreferences() RagPreferences {
  return RagPreferences{
    DefaultSystem: RagSystemNative,
    Language:      "id",
    Theme:         "light",
    SaveHistory:   true,
    MaxRoomsLimit: DefaultMaxRoomsLimit,
  }
}

type User struct {
  gorm.Model
  ID              uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Name            string          `gorm:"not null;column:name" json:"name"`
  Email           string          `gorm:"uniqueIndex;not null;column:email" json:"email"`
  Password        string          `gorm:"not null;column:password" json:"-"`
  Role            string          `gorm:"not null;default:'user';column:role" json:"role"`
  IsActive        bool            `gorm:"not null;default:true;column:is_active" json:"isActive"`
  LastLogin       time.Time       `gorm:"column:last_login" json:"lastLogin"`
  Avatar          string          `gorm:"column:avatar" json:"avatar,omitempty"`
  Bio             string          `gorm:"column:bio" json:"bio,omitempty"`
  RagPreferences  RagPreferences  `gorm:"embedded;embeddedPrefix:rag_pref_" json:"ragPreferences"`

  ChatRooms       []*ChatRoom     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"chatRooms,omitempty"`

  CreatedAt       time.Time       `gorm:"not null;default:now()" json:"createdAt"`
  UpdatedAt       time.Time       `gorm:"not null;default:now()" json:"updatedAt"`
}

func (User) TableName() string {
  return "user"
}

func ValidRole(role string) bool {
  return role == RoleUser || role == RoleAdmin || role == RoleModerator
}

func ValidRagSystem(system string) bool {
  return system == RagSystemNative || system == RagSystemLangChain
}
