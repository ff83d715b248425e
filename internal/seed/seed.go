package seed

import (
  "context"
  "fmt"

  "gorm.io/gorm"

  "github.com/coped-org/coped-backend/internal/logger"
  "github.com/coped-org/coped-backend/internal/normalization"
  "github.com/coped-org/coped-backend/internal/repos"
  "github.com/coped-org/coped-backend/internal/types"
  "github.com/coped-org/coped-backend/internal/utils"
)

// SeedAll bootstraps the initial admin account when ADMIN_EMAIL and
// ADMIN_PASSWORD are configured. Re-running is a no-op once the
// account exists.
func SeedAll(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) error {
  ctx := context.Background()

  // Stored emails are always normalized, so the configured one must
  // be too or it escapes the case-insensitive uniqueness convention.
  adminEmail := normalization.ParseEmail(utils.GetEnv("ADMIN_EMAIL", "", log))
  adminPassword := utils.GetEnv("ADMIN_PASSWORD", "", log)
  if adminEmail == "" || adminPassword == "" {
    log.Info("No admin credentials configured, skipping admin seed")
    return nil
  }

  exists, err := userRepo.EmailExists(ctx, nil, adminEmail)
  if err != nil {
    return fmt.Errorf("failed to check admin existence: %w", err)
  }
  if exists {
    log.Info("Admin user already exists, skipping admin seed", "email", adminEmail)
    return nil
  }

  admin := &types.User{
    Name:           utils.GetEnv("ADMIN_NAME", "Administrator", log),
    Email:          adminEmail,
    Password:       adminPassword,
    Role:           types.RoleAdmin,
    IsActive:       true,
    RagPreferences: types.DefaultRagPreferences(),
  }
  if err := utils.HashPassword(ctx, log, admin); err != nil {
    return err
  }
  if _, err := userRepo.Create(ctx, db, []*types.User{admin}); err != nil {
    return fmt.Errorf("failed to seed admin user: %w", err)
  }
  log.Info("Admin user seeded successfully", "email", adminEmail)
  return nil
}
