package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/coped-org/coped-backend/internal/apperr"
  "github.com/coped-org/coped-backend/internal/logger"
  "github.com/coped-org/coped-backend/internal/repos"
  "github.com/coped-org/coped-backend/internal/requestdata"
  "github.com/coped-org/coped-backend/internal/types"
)

type RoomHeader struct {
  RoomID       string    `json:"roomId"`
  Title        string    `json:"title"`
  IsActive     bool      `json:"isActive"`
  LastActivity time.Time `json:"lastActivity"`
}

type Pagination struct {
  Current int  `json:"current"`
  Total   int  `json:"total"`
  HasNext bool `json:"hasNext"`
  HasPrev bool `json:"hasPrev"`
}

type RoomMessages struct {
  Room       RoomHeader           `json:"room"`
  Messages   []*types.ChatMessage `json:"messages"`
  Pagination Pagination           `json:"pagination"`
}

type MessageService interface {
  GetRoomMessages(ctx context.Context, roomID string, page, limit int) (*RoomMessages, error)
  AppendAskResult(ctx context.Context, roomID, question string, result *RagResult) error
  RateMessage(ctx context.Context, roomID string, messageID string, rating int) error
}

type messageService struct {
  db       *gorm.DB
  log      *logger.Logger
  userRepo repos.UserRepo
  roomRepo repos.ChatRoomRepo
  msgRepo  repos.ChatMessageRepo
}

func NewMessageService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, roomRepo repos.ChatRoomRepo, msgRepo repos.ChatMessageRepo) MessageService {
  return &messageService{
    db:       db,
    log:      log.With("service", "MessageService"),
    userRepo: userRepo,
    roomRepo: roomRepo,
    msgRepo:  msgRepo,
  }
}

func (ms *messageService) GetRoomMessages(ctx context.Context, roomID string, page, limit int) (*RoomMessages, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, apperr.New(apperr.Auth, "Not authorized")
  }
  if page <= 0 {
    page = 1
  }
  if limit <= 0 {
    limit = 50
  }
  if _, err := ms.userRepo.GetByID(ctx, nil, rd.UserID); err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apperr.New(apperr.NotFound, "User not found")
    }
    return nil, fmt.Errorf("failed to load user: %w", err)
  }
  room, err := ms.roomRepo.GetByRoomID(ctx, nil, rd.UserID, roomID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apperr.New(apperr.NotFound, "Chat room not found")
    }
    return nil, fmt.Errorf("failed to load chat room: %w", err)
  }

  total, err := ms.msgRepo.CountByRoomID(ctx, nil, room.ID)
  if err != nil {
    return nil, fmt.Errorf("failed to count room messages: %w", err)
  }
  startIndex := (page - 1) * limit
  endIndex := page * limit

  // An out-of-range page yields an empty slice with valid pagination
  // metadata, not an error.
  messages, err := ms.msgRepo.GetByRoomID(ctx, nil, room.ID, startIndex, limit)
  if err != nil {
    return nil, fmt.Errorf("failed to load room messages: %w", err)
  }

  totalPages := int((total + int64(limit) - 1) / int64(limit))
  return &RoomMessages{
    Room: RoomHeader{
      RoomID:       room.RoomID,
      Title:        room.Title,
      IsActive:     room.IsActive,
      LastActivity: room.LastActivity,
    },
    Messages: messages,
    Pagination: Pagination{
      Current: page,
      Total:   totalPages,
      HasNext: int64(endIndex) < total,
      HasPrev: startIndex > 0,
    },
  }, nil
}

// AppendAskResult persists an ask outcome into a room's history. It is
// best-effort: a missing room or a disabled save-history
// preference skips persistence silently, and the ask itself never
// fails because of it.
func (ms *messageService) AppendAskResult(ctx context.Context, roomID, question string, result *RagResult) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return apperr.New(apperr.Auth, "Not authorized")
  }
  user, err := ms.userRepo.GetByID(ctx, nil, rd.UserID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      ms.log.Debug("User missing during history append, skipping", "userID", rd.UserID)
      return nil
    }
    return fmt.Errorf("failed to load user: %w", err)
  }
  if !user.RagPreferences.SaveHistory {
    ms.log.Debug("Save history preference is off, skipping append", "userID", user.ID)
    return nil
  }
  room, err := ms.roomRepo.GetByRoomID(ctx, nil, rd.UserID, roomID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      ms.log.Debug("Chat room missing during history append, skipping", "roomID", roomID)
      return nil
    }
    return fmt.Errorf("failed to load chat room: %w", err)
  }

  sources, err := json.Marshal(result.Sources)
  if err != nil {
    return fmt.Errorf("failed to encode message sources: %w", err)
  }
  msg := &types.ChatMessage{
    RoomID:       room.ID,
    Question:     question,
    Answer:       result.Answer,
    RagSystem:    result.System,
    Accuracy:     result.Accuracy,
    ResponseTime: result.ResponseTime,
    Sources:      datatypes.JSON(sources),
    GeminiModel:  result.GeminiModel,
  }
  return runInTx(ctx, ms.db, func(tx *gorm.DB) error {
    if _, cErr := ms.msgRepo.CreateMessages(ctx, tx, []*types.ChatMessage{msg}); cErr != nil {
      return fmt.Errorf("failed to create chat message: %w", cErr)
    }
    if tErr := ms.roomRepo.TouchLastActivity(ctx, tx, room.ID, time.Now()); tErr != nil {
      return fmt.Errorf("failed to touch room last activity: %w", tErr)
    }
    return nil
  })
}

func (ms *messageService) RateMessage(ctx context.Context, roomID string, messageID string, rating int) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return apperr.New(apperr.Auth, "Not authorized")
  }
  if rating < 1 || rating > 5 {
    return apperr.NewValidation("Invalid rating", "rating: must be between 1 and 5")
  }
  room, err := ms.roomRepo.GetByRoomID(ctx, nil, rd.UserID, roomID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return apperr.New(apperr.NotFound, "Chat room not found")
    }
    return fmt.Errorf("failed to load chat room: %w", err)
  }
  msgID, err := uuid.Parse(messageID)
  if err != nil {
    return apperr.NewValidation("Invalid message id", "messageId: must be a valid id")
  }
  msg, err := ms.msgRepo.GetByID(ctx, nil, room.ID, msgID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return apperr.New(apperr.NotFound, "Message not found")
    }
    return fmt.Errorf("failed to load chat message: %w", err)
  }
  if err := ms.msgRepo.UpdateRating(ctx, nil, msg.ID, rating); err != nil {
    return fmt.Errorf("failed to update message rating: %w", err)
  }
  return nil
}
