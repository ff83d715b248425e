package utils

import (
  "context"
  "fmt"
  "regexp"

  "golang.org/x/crypto/bcrypt"

  "github.com/coped-org/coped-backend/internal/apperr"
  "github.com/coped-org/coped-backend/internal/logger"
  "github.com/coped-org/coped-backend/internal/normalization"
  "github.com/coped-org/coped-backend/internal/types"
)

const (
  MaxNameLength     = 50
  MinPasswordLength = 6
)

var emailRegexp = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// ValidateRegistration checks every registration field and reports all
// violations at once, matching the schema constraints the persistence
// layer declares.
func ValidateRegistration(ctx context.Context, log *logger.Logger, user *types.User) error {
  if user == nil {
    log.Warn("User is nil, cannot proceed further. Returning error", "user", user)
    return apperr.NewValidation("No user given, cannot proceed any further.")
  }
  var fields []string
  if user.Name == "" {
    fields = append(fields, "name: Please provide a name")
  } else if len(user.Name) > MaxNameLength {
    fields = append(fields, fmt.Sprintf("name: Name cannot exceed %d characters", MaxNameLength))
  }
  if user.Email == "" {
    fields = append(fields, "email: Please provide an email")
  } else if !emailRegexp.MatchString(user.Email) {
    fields = append(fields, "email: Please provide a valid email")
  }
  if user.Password == "" {
    fields = append(fields, "password: Please provide a password")
  } else if len(user.Password) < MinPasswordLength {
    fields = append(fields, fmt.Sprintf("password: Password must be at least %d characters", MinPasswordLength))
  }
  if user.Role != "" && !types.ValidRole(user.Role) {
    fields = append(fields, fmt.Sprintf("role: '%s' is not a valid role", user.Role))
  }
  if len(fields) > 0 {
    log.Warn("Registration input validation failed. Returning error", "fields", fields)
    return apperr.NewValidation("Validation Error", fields...)
  }
  return nil
}

func ValidateLogin(ctx context.Context, log *logger.Logger, email, password string) error {
  var fields []string
  if email == "" {
    fields = append(fields, "email: Please provide an email")
  }
  if password == "" {
    fields = append(fields, "password: Please provide a password")
  }
  if len(fields) > 0 {
    log.Warn("Login input validation failed. Returning error", "fields", fields)
    return apperr.NewValidation("Please provide an email and password", fields...)
  }
  return nil
}

func ValidateRagPreferences(prefs *types.RagPreferences) error {
  var fields []string
  if prefs.DefaultSystem != "" && !types.ValidRagSystem(prefs.DefaultSystem) {
    fields = append(fields, fmt.Sprintf("ragPreferences.defaultSystem: '%s' is not a valid rag system", prefs.DefaultSystem))
  }
  if prefs.Theme != "" && prefs.Theme != "light" && prefs.Theme != "dark" {
    fields = append(fields, fmt.Sprintf("ragPreferences.theme: '%s' is not a valid theme", prefs.Theme))
  }
  if prefs.MaxRoomsLimit < 0 {
    fields = append(fields, "ragPreferences.maxRoomsLimit: must not be negative")
  }
  if len(fields) > 0 {
    return apperr.NewValidation("Validation Error", fields...)
  }
  return nil
}

func HashPassword(ctx context.Context, log *logger.Logger, user *types.User) error {
  hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
  if err != nil {
    log.Warn("Failure to hash password for user. Returning error", "error", err)
    return fmt.Errorf("Failed to hash password for user.")
  }
  user.Password = string(hashedPassword)
  return nil
}

func NormalizeUserFields(ctx context.Context, user *types.User) {
  user.Name = normalization.ParseInputString(user.Name)
  user.Email = normalization.ParseEmail(user.Email)
  user.Role = normalization.ParseInputString(user.Role)
}
