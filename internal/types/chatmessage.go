package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

// ChatMessage is a question/answer record inside a room. Immutable
// once created except for UserRating.
type ChatMessage struct {
  gorm.Model
  ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  RoomID        uuid.UUID       `gorm:"index;not null" json:"-"`
  Question      string          `gorm:"type:text;not null;column:question" json:"question"`
  Answer        string          `gorm:"type:text;not null;column:answer" json:"answer"`
  RagSystem     string          `gorm:"not null;column:rag_system" json:"ragSystem"`
  Accuracy      float64         `gorm:"not null;column:accuracy" json:"accuracy"`
  ResponseTime  float64         `gorm:"not null;column:response_time" json:"responseTime"`
  Sources       datatypes.JSON  `gorm:"column:sources" json:"sources"`
  GeminiModel   string          `gorm:"column:gemini_model" json:"geminiModel"`
  UserRating    *int            `gorm:"column:user_rating" json:"userRating,omitempty"`

  CreatedAt     time.Time       `gorm:"not null;default:now()" json:"createdAt"`
  UpdatedAt     time.Time       `gorm:"not null;default:now()" json:"updatedAt"`
}

func (ChatMessage) TableName() string {
  return "chat_message"
}
