package repos

import (
    "context"
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/coped-org/coped-backend/internal/logger"
    "github.com/coped-org/coped-backend/internal/types"
)

type ChatRoomRepo interface {
    CreateRoom(ctx context.Context, tx *gorm.DB, room *types.ChatRoom) (*types.ChatRoom, error)
    GetByRoomID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, roomID string) (*types.ChatRoom, error)
    GetUserRooms(ctx context.Context, tx *gorm.DB, userID uuid.UUID, onlyActive bool) ([]*types.ChatRoom, error)
    CountUserRooms(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
    CountActiveRooms(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
    Deactivate(ctx context.Context, tx *gorm.DB, room *types.ChatRoom) error
    TouchLastActivity(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, at time.Time) error
}

type chatRoomRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewChatRoomRepo(db *gorm.DB, baseLog *logger.Logger) ChatRoomRepo {
    return &chatRoomRepo{db: db, log: baseLog.With("repo", "ChatRoomRepo")}
}

func (crr *chatRoomRepo) CreateRoom(ctx context.Context, tx *gorm.DB, room *types.ChatRoom) (*types.ChatRoom, error) {
    if tx == nil {
        tx = crr.db
    }
    if room.ID == uuid.Nil {
        room.ID = uuid.New()
    }
    if err := tx.WithContext(ctx).Create(room).Error; err != nil {
        crr.log.Error("failed to create chat room", "error", err)
        return nil, err
    }
    return room, nil
}

func (crr *chatRoomRepo) GetByRoomID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, roomID string) (*types.ChatRoom, error) {
    if tx == nil {
        tx = crr.db
    }
    var room types.ChatRoom
    if err := tx.WithContext(ctx).
        Where("user_id = ? AND room_id = ?", userID, roomID).
        First(&room).Error; err != nil {
        return nil, err
    }
    return &room, nil
}

func (crr *chatRoomRepo) GetUserRooms(ctx context.Context, tx *gorm.DB, userID uuid.UUID, onlyActive bool) ([]*types.ChatRoom, error) {
    if tx == nil {
        tx = crr.db
    }
    q := tx.WithContext(ctx).Where("user_id = ?", userID)
    if onlyActive {
        q = q.Where("is_active = ?", true)
    }
    var rooms []*types.ChatRoom
    if err := q.Order("last_activity DESC").Find(&rooms).Error; err != nil {
        crr.log.Error("failed to get user chat rooms", "error", err)
        return nil, err
    }
    return rooms, nil
}

func (crr *chatRoomRepo) CountUserRooms(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
    if tx == nil {
        tx = crr.db
    }
    var count int64
    if err := tx.WithContext(ctx).
        Model(&types.ChatRoom{}).
        Where("user_id = ?", userID).
        Count(&count).Error; err != nil {
        crr.log.Error("failed to count user chat rooms", "error", err)
        return 0, err
    }
    return count, nil
}

func (crr *chatRoomRepo) CountActiveRooms(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
    if tx == nil {
        tx = crr.db
    }
    var count int64
    if err := tx.WithContext(ctx).
        Model(&types.ChatRoom{}).
        Where("user_id = ? AND is_active = ?", userID, true).
        Count(&count).Error; err != nil {
        crr.log.Error("failed to count active chat rooms", "error", err)
        return 0, err
    }
    return count, nil
}

// Deactivate flips the room inactive. Messages stay untouched, and
// deactivating an already-inactive room is a no-op.
func (crr *chatRoomRepo) Deactivate(ctx context.Context, tx *gorm.DB, room *types.ChatRoom) error {
    if tx == nil {
        tx = crr.db
    }
    if err := tx.WithContext(ctx).
        Model(&types.ChatRoom{}).
        Where("id = ?", room.ID).
        Update("is_active", false).Error; err != nil {
        crr.log.Error("failed to deactivate chat room", "error", err)
        return err
    }
    room.IsActive = false
    return nil
}

func (crr *chatRoomRepo) TouchLastActivity(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, at time.Time) error {
    if tx == nil {
        tx = crr.db
    }
    if err := tx.WithContext(ctx).
        Model(&types.ChatRoom{}).
        Where("id = ?", roomID).
        Update("last_activity", at).Error; err != nil {
        crr.log.Error("failed to touch chat room last activity", "error", err)
        return err
    }
    return nil
}
