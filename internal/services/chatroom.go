package services

import (
  "context"
  "errors"
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/coped-org/coped-backend/internal/apperr"
  "github.com/coped-org/coped-backend/internal/logger"
  "github.com/coped-org/coped-backend/internal/normalization"
  "github.com/coped-org/coped-backend/internal/repos"
  "github.com/coped-org/coped-backend/internal/requestdata"
  "github.com/coped-org/coped-backend/internal/types"
)

// RoomSummary decorates a stored room with derived message stats for
// listings. Stored data is never mutated to produce it.
type RoomSummary struct {
  *types.ChatRoom
  MessageCount int64              `json:"messageCount"`
  LastMessage  *types.ChatMessage `json:"lastMessage"`
}

type RoomList struct {
  Rooms []*RoomSummary `json:"rooms"`
  Total int64          `json:"total"`
}

type ChatRoomService interface {
  CreateRoom(ctx context.Context, title string) (*types.ChatRoom, error)
  GetRooms(ctx context.Context, limit int, onlyActive bool) (*RoomList, error)
  DeleteRoom(ctx context.Context, roomID string) error
}

type chatRoomService struct {
  db       *gorm.DB
  log      *logger.Logger
  userRepo repos.UserRepo
  roomRepo repos.ChatRoomRepo
  msgRepo  repos.ChatMessageRepo
}

func NewChatRoomService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, roomRepo repos.ChatRoomRepo, msgRepo repos.ChatMessageRepo) ChatRoomService {
  return &chatRoomService{
    db:       db,
    log:      log.With("service", "ChatRoomService"),
    userRepo: userRepo,
    roomRepo: roomRepo,
    msgRepo:  msgRepo,
  }
}

func (crs *chatRoomService) CreateRoom(ctx context.Context, title string) (*types.ChatRoom, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    crs.log.Warn("No Request Data found in context, Cannot proceed.")
    return nil, apperr.New(apperr.Auth, "Not authorized")
  }
  crs.log.Info("Creating chat room for user", "userID", rd.UserID)

  user, err := crs.userRepo.GetByID(ctx, nil, rd.UserID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apperr.New(apperr.NotFound, "User not found")
    }
    crs.log.Warn("Failed to load user for room creation. Returning error.", "error", err)
    return nil, fmt.Errorf("failed to load user: %w", err)
  }

  newRoom := &types.ChatRoom{
    UserID:       user.ID,
    RoomID:       uuid.New().String(),
    Title:        normalization.ParseInputString(title),
    IsActive:     true,
    LastActivity: time.Now(),
  }
  if newRoom.Title == "" {
    newRoom.Title = fmt.Sprintf("Chat Room %d", time.Now().UnixMilli())
  }

  // The limit check and the insert share one transaction so two
  // concurrent creations cannot both sneak under the limit.
  err = runInTx(ctx, crs.db, func(tx *gorm.DB) error {
    activeCount, cErr := crs.roomRepo.CountActiveRooms(ctx, tx, user.ID)
    if cErr != nil {
      crs.log.Warn("Failed to count active rooms, Cannot proceed. Returning error.", "error", cErr)
      return fmt.Errorf("failed to count active rooms: %w", cErr)
    }
    limit := user.RagPreferences.MaxRoomsLimit
    if activeCount >= int64(limit) {
      crs.log.Warn("Active room limit reached, Cannot proceed.", "activeCount", activeCount, "limit", limit)
      return apperr.Newf(apperr.LimitExceeded, "Maximum %d active rooms allowed", limit)
    }
    if _, cErr := crs.roomRepo.CreateRoom(ctx, tx, newRoom); cErr != nil {
      return fmt.Errorf("failed to create chat room: %w", cErr)
    }
    return nil
  })
  if err != nil {
    return nil, err
  }
  crs.log.Info("Chat room created successfully", "roomID", newRoom.RoomID)
  return newRoom, nil
}

func (crs *chatRoomService) GetRooms(ctx context.Context, limit int, onlyActive bool) (*RoomList, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, apperr.New(apperr.Auth, "Not authorized")
  }
  if limit <= 0 {
    limit = 10
  }
  if _, err := crs.userRepo.GetByID(ctx, nil, rd.UserID); err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apperr.New(apperr.NotFound, "User not found")
    }
    return nil, fmt.Errorf("failed to load user: %w", err)
  }

  rooms, err := crs.roomRepo.GetUserRooms(ctx, nil, rd.UserID, onlyActive)
  if err != nil {
    return nil, fmt.Errorf("failed to load chat rooms: %w", err)
  }
  if len(rooms) > limit {
    rooms = rooms[:limit]
  }

  summaries := make([]*RoomSummary, 0, len(rooms))
  for _, room := range rooms {
    count, cErr := crs.msgRepo.CountByRoomID(ctx, nil, room.ID)
    if cErr != nil {
      return nil, fmt.Errorf("failed to count room messages: %w", cErr)
    }
    last, lErr := crs.msgRepo.LatestByRoomID(ctx, nil, room.ID)
    if lErr != nil {
      return nil, fmt.Errorf("failed to load latest room message: %w", lErr)
    }
    summaries = append(summaries, &RoomSummary{
      ChatRoom:     room,
      MessageCount: count,
      LastMessage:  last,
    })
  }

  total, err := crs.roomRepo.CountUserRooms(ctx, nil, rd.UserID)
  if err != nil {
    return nil, fmt.Errorf("failed to count chat rooms: %w", err)
  }
  return &RoomList{Rooms: summaries, Total: total}, nil
}

// DeleteRoom marks a room inactive. Calling it again on the same room
// succeeds and changes nothing; messages stay retrievable.
func (crs *chatRoomService) DeleteRoom(ctx context.Context, roomID string) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return apperr.New(apperr.Auth, "Not authorized")
  }
  crs.log.Info("Deleting chat room", "roomID", roomID, "userID", rd.UserID)

  room, err := crs.roomRepo.GetByRoomID(ctx, nil, rd.UserID, roomID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return apperr.New(apperr.NotFound, "Chat room not found")
    }
    return fmt.Errorf("failed to load chat room: %w", err)
  }
  if err := crs.roomRepo.Deactivate(ctx, nil, room); err != nil {
    return fmt.Errorf("failed to deactivate chat room: %w", err)
  }
  crs.log.Info("Chat room deleted successfully", "roomID", roomID)
  return nil
}
