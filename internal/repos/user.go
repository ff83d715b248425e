package repos

import (
    "context"
    "errors"
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/coped-org/coped-backend/internal/logger"
    "github.com/coped-org/coped-backend/internal/types"
)

type UserRepo interface {
    // CREATE
    Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error)

    // READ
    GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error)
    GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error)
    EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error)
    GetAll(ctx context.Context, tx *gorm.DB) ([]*types.User, error)

    // UPDATE
    Update(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error)
    TouchLastLogin(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type userRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
    return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
    if tx == nil {
        tx = ur.db
    }
    if len(users) == 0 {
        return []*types.User{}, nil
    }
    for _, u := range users {
        if u.ID == uuid.Nil {
            u.ID = uuid.New()
        }
    }
    if err := tx.WithContext(ctx).Create(&users).Error; err != nil {
        ur.log.Error("Failed to create users", "error", err)
        return nil, err
    }
    ur.log.Info("Successfully created users", "count", len(users))
    return users, nil
}

func (ur *userRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
    if tx == nil {
        tx = ur.db
    }
    var u types.User
    if err := tx.WithContext(ctx).
        Where("id = ?", userID).
        First(&u).Error; err != nil {
        return nil, err
    }
    return &u, nil
}

func (ur *userRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
    if tx == nil {
        tx = ur.db
    }
    var u types.User
    if err := tx.WithContext(ctx).
        Where("email = ?", email).
        First(&u).Error; err != nil {
        return nil, err
    }
    return &u, nil
}

func (ur *userRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
    if tx == nil {
        tx = ur.db
    }
    var count int64
    if err := tx.WithContext(ctx).
        Model(&types.User{}).
        Where("email = ?", email).
        Count(&count).Error; err != nil {
        ur.log.Error("Failed to check email existence", "error", err)
        return false, err
    }
    return count > 0, nil
}

func (ur *userRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.User, error) {
    if tx == nil {
        tx = ur.db
    }
    var users []*types.User
    if err := tx.WithContext(ctx).
        Order("created_at DESC").
        Find(&users).Error; err != nil {
        ur.log.Error("Failed to fetch all users", "error", err)
        return nil, err
    }
    return users, nil
}

func (ur *userRepo) Update(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
    if tx == nil {
        tx = ur.db
    }
    if user == nil {
        return nil, errors.New("no user given to update")
    }
    if err := tx.WithContext(ctx).Save(user).Error; err != nil {
        ur.log.Error("Failed to update user", "error", err)
        return nil, err
    }
    return user, nil
}

func (ur *userRepo) TouchLastLogin(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
    if tx == nil {
        tx = ur.db
    }
    if err := tx.WithContext(ctx).
        Model(&types.User{}).
        Where("id = ?", userID).
        Update("last_login", time.Now()).Error; err != nil {
        ur.log.Error("Failed to touch last login", "error", err)
        return err
    }
    return nil
}
