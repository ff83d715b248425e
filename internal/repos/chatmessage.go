package repos

import (
    "context"
    "errors"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/coped-org/coped-backend/internal/logger"
    "github.com/coped-org/coped-backend/internal/types"
)

type ChatMessageRepo interface {
    CreateMessages(ctx context.Context, tx *gorm.DB, msgs []*types.ChatMessage) ([]*types.ChatMessage, error)
    GetByRoomID(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, offset, limit int) ([]*types.ChatMessage, error)
    GetByID(ctx context.Context, tx *gorm.DB, roomID, messageID uuid.UUID) (*types.ChatMessage, error)
    CountByRoomID(ctx context.Context, tx *gorm.DB, roomID uuid.UUID) (int64, error)
    LatestByRoomID(ctx context.Context, tx *gorm.DB, roomID uuid.UUID) (*types.ChatMessage, error)
    UpdateRating(ctx context.Context, tx *gorm.DB, messageID uuid.UUID, rating int) error
}

type chatMessageRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
    return &chatMessageRepo{db: db, log: baseLog.With("repo", "ChatMessageRepo")}
}

func (cmr *chatMessageRepo) CreateMessages(ctx context.Context, tx *gorm.DB, msgs []*types.ChatMessage) ([]*types.ChatMessage, error) {
    if tx == nil {
        tx = cmr.db
    }
    if len(msgs) == 0 {
        return msgs, nil
    }
    for _, m := range msgs {
        if m.ID == uuid.Nil {
            m.ID = uuid.New()
        }
    }
    if err := tx.WithContext(ctx).Create(&msgs).Error; err != nil {
        cmr.log.Error("failed to create chat messages", "error", err)
        return nil, err
    }
    return msgs, nil
}

// GetByRoomID pages through a room's messages newest first. A negative
// limit disables truncation.
func (cmr *chatMessageRepo) GetByRoomID(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, offset, limit int) ([]*types.ChatMessage, error) {
    if tx == nil {
        tx = cmr.db
    }
    var msgs []*types.ChatMessage
    if err := tx.WithContext(ctx).
        Where("room_id = ?", roomID).
        Order("created_at DESC").
        Offset(offset).
        Limit(limit).
        Find(&msgs).Error; err != nil {
        cmr.log.Error("failed to get chat messages by roomID", "error", err)
        return nil, err
    }
    return msgs, nil
}

func (cmr *chatMessageRepo) GetByID(ctx context.Context, tx *gorm.DB, roomID, messageID uuid.UUID) (*types.ChatMessage, error) {
    if tx == nil {
        tx = cmr.db
    }
    var msg types.ChatMessage
    if err := tx.WithContext(ctx).
        Where("id = ? AND room_id = ?", messageID, roomID).
        First(&msg).Error; err != nil {
        return nil, err
    }
    return &msg, nil
}

func (cmr *chatMessageRepo) CountByRoomID(ctx context.Context, tx *gorm.DB, roomID uuid.UUID) (int64, error) {
    if tx == nil {
        tx = cmr.db
    }
    var count int64
    if err := tx.WithContext(ctx).
        Model(&types.ChatMessage{}).
        Where("room_id = ?", roomID).
        Count(&count).Error; err != nil {
        cmr.log.Error("failed to count chat messages", "error", err)
        return 0, err
    }
    return count, nil
}

func (cmr *chatMessageRepo) LatestByRoomID(ctx context.Context, tx *gorm.DB, roomID uuid.UUID) (*types.ChatMessage, error) {
    if tx == nil {
        tx = cmr.db
    }
    var msg types.ChatMessage
    err := tx.WithContext(ctx).
        Where("room_id = ?", roomID).
        Order("created_at DESC").
        First(&msg).Error
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, nil
    }
    if err != nil {
        cmr.log.Error("failed to get latest chat message", "error", err)
        return nil, err
    }
    return &msg, nil
}

func (cmr *chatMessageRepo) UpdateRating(ctx context.Context, tx *gorm.DB, messageID uuid.UUID, rating int) error {
    if tx == nil {
        tx = cmr.db
    }
    if err := tx.WithContext(ctx).
        Model(&types.ChatMessage{}).
        Where("id = ?", messageID).
        Update("user_rating", rating).Error; err != nil {
        cmr.log.Error("failed to update chat message rating", "error", err)
        return err
    }
    return nil
}
