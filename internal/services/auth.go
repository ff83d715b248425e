package services

import (
  "context"
  "errors"
  "fmt"
  "time"

  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"
  "golang.org/x/crypto/bcrypt"
  "gorm.io/gorm"

  "github.com/coped-org/coped-backend/internal/apperr"
  "github.com/coped-org/coped-backend/internal/logger"
  "github.com/coped-org/coped-backend/internal/normalization"
  "github.com/coped-org/coped-backend/internal/repos"
  "github.com/coped-org/coped-backend/internal/requestdata"
  "github.com/coped-org/coped-backend/internal/types"
  "github.com/coped-org/coped-backend/internal/utils"
)

type JWTClaims struct {
  jwt.RegisteredClaims
  Role string `json:"role,omitempty"`
}

// RagPreferencesUpdate carries only the preference fields the caller
// wants to change.
type RagPreferencesUpdate struct {
  DefaultSystem *string `json:"defaultSystem,omitempty"`
  Language      *string `json:"language,omitempty"`
  Theme         *string `json:"theme,omitempty"`
  SaveHistory   *bool   `json:"saveHistory,omitempty"`
  MaxRoomsLimit *int    `json:"maxRoomsLimit,omitempty"`
}

type ProfileUpdate struct {
  Name           *string               `json:"name,omitempty"`
  Avatar         *string               `json:"avatar,omitempty"`
  Bio            *string               `json:"bio,omitempty"`
  RagPreferences *RagPreferencesUpdate `json:"ragPreferences,omitempty"`
}

type AuthService interface {
  Register(ctx context.Context, user *types.User) (*types.User, error)
  Login(ctx context.Context, email, password string) (string, string, error)
  Refresh(ctx context.Context) (string, string, error)
  Logout(ctx context.Context) error

  GetMe(ctx context.Context) (*types.User, error)
  UpdateProfile(ctx context.Context, patch *ProfileUpdate) (*types.User, error)
  GetAllUsers(ctx context.Context) ([]*types.User, error)

  SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
  GetAccessTTL() time.Duration
}

type authService struct {
  db            *gorm.DB
  log           *logger.Logger
  userRepo      repos.UserRepo
  userTokenRepo repos.UserTokenRepo
  jwtSecretKey  string
  accessTTL     time.Duration
  refreshTTL    time.Duration
}

func NewAuthService(
  db *gorm.DB,
  log *logger.Logger,
  userRepo repos.UserRepo,
  userTokenRepo repos.UserTokenRepo,
  jwtSecretKey string,
  accessTTL time.Duration,
  refreshTTL time.Duration,
) AuthService {
  return &authService{
    db:            db,
    log:           log.With("service", "AuthService"),
    userRepo:      userRepo,
    userTokenRepo: userTokenRepo,
    jwtSecretKey:  jwtSecretKey,
    accessTTL:     accessTTL,
    refreshTTL:    refreshTTL,
  }
}

//----------------------------------------------------------------------------------------------------------------------
// Register
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) Register(ctx context.Context, user *types.User) (*types.User, error) {
  as.log.Info("Starting Register User now...")

  //1) Normalize User Fields
  utils.NormalizeUserFields(ctx, user)

  //2) Checks on user fields
  if vErr := utils.ValidateRegistration(ctx, as.log, user); vErr != nil {
    return nil, vErr
  }

  //3) Check email uniqueness
  emailExists, err := as.userRepo.EmailExists(ctx, nil, user.Email)
  if err != nil {
    as.log.Warn("Failed to check if user email exists. Returning an error.", "error", err)
    return nil, fmt.Errorf("failed checking user email existence: %w", err)
  }
  if emailExists {
    as.log.Warn("Email is already in use, cannot continue. Returning an error.", "email", user.Email)
    return nil, apperr.New(apperr.Duplicate, "Duplicate field value: email. Please use another value.")
  }

  //4) Hash Password
  if hErr := utils.HashPassword(ctx, as.log, user); hErr != nil {
    return nil, hErr
  }

  //5) Fill defaults. Preferences are always set at construction so no
  //   later read has to lazily initialize them.
  if user.Role == "" {
    user.Role = types.RoleUser
  }
  user.IsActive = true
  user.LastLogin = time.Now()
  user.RagPreferences = types.DefaultRagPreferences()

  //6) Transaction Body
  err = runInTx(ctx, as.db, func(tx *gorm.DB) error {
    created, cErr := as.userRepo.Create(ctx, tx, []*types.User{user})
    if cErr != nil {
      as.log.Warn("Failed to create final user, Cannot proceed. Returning error.", "error", cErr)
      return fmt.Errorf("failure to create user: %w", cErr)
    }
    if len(created) == 0 {
      return fmt.Errorf("failure to create user in DB")
    }
    return nil
  })
  if err != nil {
    return nil, err
  }
  as.log.Info("User registered successfully", "userID", user.ID)
  return user, nil
}

//----------------------------------------------------------------------------------------------------------------------
// Login / Refresh / Logout
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) Login(ctx context.Context, userEmail, userPassword string) (string, string, error) {
  //1) Normalize Input
  email := normalization.ParseEmail(userEmail)
  password := userPassword

  //2) Input Validations
  if vErr := utils.ValidateLogin(ctx, as.log, email, password); vErr != nil {
    return "", "", vErr
  }

  //3) Find User By Email
  user, err := as.userRepo.GetByEmail(ctx, nil, email)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      as.log.Warn("Invalid email, no user found.", "email", email)
      return "", "", apperr.New(apperr.Auth, "Invalid credentials")
    }
    as.log.Warn("Failure to retrieve user by email, Cannot proceed. Returning error.", "error", err)
    return "", "", fmt.Errorf("error retrieving user by email: %w", err)
  }
  if !user.IsActive {
    as.log.Warn("User account is deactivated, Cannot proceed.", "userID", user.ID)
    return "", "", apperr.New(apperr.Auth, "Account is deactivated")
  }
  if hErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); hErr != nil {
    as.log.Warn("Invalid password, user password and hash dont match, Cannot proceed.", "error", hErr)
    return "", "", apperr.New(apperr.Auth, "Invalid credentials")
  }

  //4) Issue token pair
  var accessToken string
  var refreshToken string
  if err := runInTx(ctx, as.db, func(tx *gorm.DB) error {
    foundTokens, fTErr := as.userTokenRepo.GetByUserIDs(ctx, tx, []uuid.UUID{user.ID})
    if fTErr != nil {
      as.log.Warn("Failed to check whether user already has user tokens, Cannot proceed. Returning error.", "error", fTErr)
      return fmt.Errorf("failed to check whether user already has user tokens: %w", fTErr)
    }
    if len(foundTokens) > 0 {
      if dTErr := as.userTokenRepo.FullDeleteByTokens(ctx, tx, foundTokens); dTErr != nil {
        as.log.Warn("Failed to delete stale user tokens, Cannot proceed. Returning error.", "error", dTErr)
        return fmt.Errorf("failed to delete stale user tokens: %w", dTErr)
      }
    }
    tok, genErr := as.generateAccessToken(user)
    if genErr != nil {
      as.log.Warn("Generate Access Token Error, Cannot proceed. Returning error.", "error", genErr)
      return fmt.Errorf("generate access token error: %w", genErr)
    }
    accessToken = tok
    refreshToken = uuid.New().String()
    expiresAt := time.Now().Add(as.refreshTTL)
    userToken := types.UserToken{
      ID:           uuid.New(),
      UserID:       user.ID,
      AccessToken:  accessToken,
      RefreshToken: refreshToken,
      ExpiresAt:    expiresAt,
    }
    if _, cTErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&userToken}); cTErr != nil {
      as.log.Warn("Create User Token Error, Cannot proceed. Returning error.", "error", cTErr)
      return fmt.Errorf("create user token error: %w", cTErr)
    }
    if lErr := as.userRepo.TouchLastLogin(ctx, tx, user.ID); lErr != nil {
      as.log.Warn("Failed to refresh user last login, Cannot proceed. Returning error.", "error", lErr)
      return fmt.Errorf("failed to refresh user last login: %w", lErr)
    }
    return nil
  }); err != nil {
    return "", "", err
  }
  return accessToken, refreshToken, nil
}

func (as *authService) Refresh(ctx context.Context) (string, string, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    as.log.Warn("No Request Data found in context, Cannot proceed.")
    return "", "", apperr.New(apperr.Auth, "Not authorized")
  }
  if rd.RefreshToken == "" {
    as.log.Warn("RefreshToken in Request Data in context is an empty string, Cannot proceed.")
    return "", "", apperr.New(apperr.Auth, "Missing refresh token")
  }

  var accessToken string
  var newRefreshTokenStr string
  err := runInTx(ctx, as.db, func(tx *gorm.DB) error {
    foundTokens, fTErr := as.userTokenRepo.GetByRefreshTokens(ctx, tx, []string{rd.RefreshToken})
    if fTErr != nil {
      as.log.Warn("Error fetching refresh token, Cannot proceed. Returning error.", "error", fTErr)
      return fmt.Errorf("error fetching refresh token: %w", fTErr)
    }
    if len(foundTokens) == 0 {
      as.log.Warn("No user token found for the given refresh token, Cannot proceed.")
      return apperr.New(apperr.Auth, "Invalid refresh token")
    }
    existingToken := foundTokens[0]

    if existingToken.ExpiresAt.Before(time.Now()) {
      if dTErr := as.userTokenRepo.FullDeleteByTokens(ctx, tx, []*types.UserToken{existingToken}); dTErr != nil {
        as.log.Warn("Refresh token expired, error deleting expired refresh token. Returning error.", "error", dTErr)
        return fmt.Errorf("refresh token expired, error deleting: %w", dTErr)
      }
      as.log.Warn("Refresh Token Expired, Cannot proceed.")
      return apperr.New(apperr.Auth, "Refresh token expired")
    }
    user, uErr := as.userRepo.GetByID(ctx, tx, existingToken.UserID)
    if uErr != nil {
      as.log.Warn("Failed to load user for refresh, Cannot proceed. Returning error.", "error", uErr)
      return fmt.Errorf("failed to load user for refresh: %w", uErr)
    }
    tok, genErr := as.generateAccessToken(user)
    if genErr != nil {
      as.log.Warn("Failed to generate new access token, Cannot proceed. Returning error.", "error", genErr)
      return fmt.Errorf("failed to generate new access token: %w", genErr)
    }
    accessToken = tok
    newRefreshTokenStr = uuid.New().String()
    newUserToken := types.UserToken{
      ID:           uuid.New(),
      UserID:       user.ID,
      AccessToken:  tok,
      RefreshToken: newRefreshTokenStr,
      ExpiresAt:    time.Now().Add(as.refreshTTL),
    }
    if _, cErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&newUserToken}); cErr != nil {
      as.log.Warn("Failed to create new user token, Cannot proceed. Returning error.", "error", cErr)
      return fmt.Errorf("failed to create new user token: %w", cErr)
    }
    if dErr := as.userTokenRepo.FullDeleteByTokens(ctx, tx, []*types.UserToken{existingToken}); dErr != nil {
      as.log.Warn("Failed to remove old refresh token, Cannot proceed. Returning error.", "error", dErr)
      return fmt.Errorf("failed to remove old refresh token: %w", dErr)
    }
    return nil
  })
  if err != nil {
    return "", "", err
  }
  return accessToken, newRefreshTokenStr, nil
}

func (as *authService) Logout(ctx context.Context) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    as.log.Warn("No Request Data found in context, Cannot proceed.")
    return apperr.New(apperr.Auth, "Not authorized")
  }
  if rd.TokenString == "" {
    as.log.Warn("TokenString in Request Data is an empty string, Cannot proceed.")
    return apperr.New(apperr.Auth, "Missing token")
  }
  return runInTx(ctx, as.db, func(tx *gorm.DB) error {
    foundTokens, fTErr := as.userTokenRepo.GetByAccessTokens(ctx, tx, []string{rd.TokenString})
    if fTErr != nil {
      as.log.Warn("Error finding user token from token string, Cannot proceed. Returning error.", "error", fTErr)
      return fmt.Errorf("error finding user token from token string: %w", fTErr)
    }
    if len(foundTokens) == 0 {
      return nil
    }
    if tDErr := as.userTokenRepo.FullDeleteByTokens(ctx, tx, foundTokens); tDErr != nil {
      as.log.Warn("Error deleting user token, Cannot proceed. Returning error.", "error", tDErr)
      return fmt.Errorf("error deleting user token: %w", tDErr)
    }
    return nil
  })
}

//----------------------------------------------------------------------------------------------------------------------
// Profile
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) GetMe(ctx context.Context) (*types.User, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, apperr.New(apperr.Auth, "Not authorized")
  }
  user, err := as.userRepo.GetByID(ctx, nil, rd.UserID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apperr.New(apperr.NotFound, "User not found")
    }
    return nil, fmt.Errorf("failed to load user: %w", err)
  }
  return user, nil
}

func (as *authService) UpdateProfile(ctx context.Context, patch *ProfileUpdate) (*types.User, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, apperr.New(apperr.Auth, "Not authorized")
  }
  if patch == nil {
    return nil, apperr.NewValidation("No profile fields given")
  }
  user, err := as.userRepo.GetByID(ctx, nil, rd.UserID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, apperr.New(apperr.NotFound, "User not found")
    }
    return nil, fmt.Errorf("failed to load user: %w", err)
  }

  if patch.Name != nil {
    name := normalization.ParseInputString(*patch.Name)
    if name == "" {
      return nil, apperr.NewValidation("Validation Error", "name: Please provide a name")
    }
    if len(name) > utils.MaxNameLength {
      return nil, apperr.NewValidation("Validation Error", fmt.Sprintf("name: Name cannot exceed %d characters", utils.MaxNameLength))
    }
    user.Name = name
  }
  if patch.Avatar != nil {
    user.Avatar = *patch.Avatar
  }
  if patch.Bio != nil {
    user.Bio = *patch.Bio
  }
  if patch.RagPreferences != nil {
    prefs := user.RagPreferences
    if patch.RagPreferences.DefaultSystem != nil {
      prefs.DefaultSystem = *patch.RagPreferences.DefaultSystem
    }
    if patch.RagPreferences.Language != nil {
      prefs.Language = *patch.RagPreferences.Language
    }
    if patch.RagPreferences.Theme != nil {
      prefs.Theme = *patch.RagPreferences.Theme
    }
    if patch.RagPreferences.SaveHistory != nil {
      prefs.SaveHistory = *patch.RagPreferences.SaveHistory
    }
    if patch.RagPreferences.MaxRoomsLimit != nil {
      prefs.MaxRoomsLimit = *patch.RagPreferences.MaxRoomsLimit
    }
    if vErr := utils.ValidateRagPreferences(&prefs); vErr != nil {
      return nil, vErr
    }
    user.RagPreferences = prefs
  }

  updated, err := as.userRepo.Update(ctx, nil, user)
  if err != nil {
    as.log.Warn("Failed to update user profile, Cannot proceed. Returning error.", "error", err)
    return nil, fmt.Errorf("failed to update user profile: %w", err)
  }
  return updated, nil
}

func (as *authService) GetAllUsers(ctx context.Context) ([]*types.User, error) {
  users, err := as.userRepo.GetAll(ctx, nil)
  if err != nil {
    return nil, fmt.Errorf("failed to load users: %w", err)
  }
  return users, nil
}

//----------------------------------------------------------------------------------------------------------------------
// Tokens
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) generateAccessToken(user *types.User) (string, error) {
  claims := JWTClaims{
    RegisteredClaims: jwt.RegisteredClaims{
      Subject:   user.ID.String(),
      ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
      IssuedAt:  jwt.NewNumericDate(time.Now()),
    },
    Role: user.Role,
  }
  token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
  return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
  if tokenString == "" {
    return ctx, nil
  }
  parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
    return []byte(as.jwtSecretKey), nil
  })
  if err != nil {
    return ctx, apperr.Wrap(apperr.Auth, "Invalid token", err)
  }
  claims, ok := parsedToken.Claims.(*JWTClaims)
  if !ok || !parsedToken.Valid {
    return ctx, apperr.New(apperr.Auth, "Invalid or expired token")
  }
  userID, err := uuid.Parse(claims.Subject)
  if err != nil {
    return ctx, apperr.Wrap(apperr.Auth, "Invalid user ID in token", err)
  }

  foundTokens, fTErr := as.userTokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString})
  if fTErr != nil {
    as.log.Warn("Error fetching user token by access token, Cannot proceed. Returning error.", "error", fTErr)
    return ctx, fmt.Errorf("failed to fetch user token by access token: %w", fTErr)
  }
  if len(foundTokens) == 0 {
    return ctx, apperr.New(apperr.Auth, "Token has been revoked")
  }

  rd := &requestdata.RequestData{
    TokenString:  tokenString,
    RefreshToken: foundTokens[0].RefreshToken,
    UserID:       userID,
    Role:         claims.Role,
  }
  return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
  return as.accessTTL
}
