package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/coped-org/coped-backend/internal/apperr"
  "github.com/coped-org/coped-backend/internal/services"
  "github.com/coped-org/coped-backend/internal/types"
)

type AuthHandler struct {
  authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
  return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) Register(c *gin.Context) {
  var req struct {
    Name     string `json:"name"`
    Email    string `json:"email"`
    Password string `json:"password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    respondError(c, apperr.NewValidation("invalid request body"))
    return
  }
  user := types.User{
    Name:     req.Name,
    Email:    req.Email,
    Password: req.Password,
  }
  created, err := ah.authService.Register(c.Request.Context(), &user)
  if err != nil {
    respondError(c, err)
    return
  }
  respondSuccess(c, http.StatusCreated, "User registered successfully", gin.H{"user": created})
}

func (ah *AuthHandler) Login(c *gin.Context) {
  var req struct {
    Email    string `json:"email"`
    Password string `json:"password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    respondError(c, apperr.NewValidation("invalid request body"))
    return
  }
  accessToken, refreshToken, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
  if err != nil {
    respondError(c, err)
    return
  }
  expiresIn := int(ah.authService.GetAccessTTL().Seconds())
  respondSuccess(c, http.StatusOK, "Login successful", gin.H{
    "access_token":  accessToken,
    "refresh_token": refreshToken,
    "expires_in":    expiresIn,
  })
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
  accessToken, refreshToken, err := ah.authService.Refresh(c.Request.Context())
  if err != nil {
    respondError(c, err)
    return
  }
  expiresIn := int(ah.authService.GetAccessTTL().Seconds())
  respondSuccess(c, http.StatusOK, "", gin.H{
    "access_token":  accessToken,
    "refresh_token": refreshToken,
    "expires_in":    expiresIn,
  })
}

func (ah *AuthHandler) Logout(c *gin.Context) {
  if err := ah.authService.Logout(c.Request.Context()); err != nil {
    respondError(c, err)
    return
  }
  respondSuccess(c, http.StatusOK, "Logged out successfully", nil)
}

func (ah *AuthHandler) GetMe(c *gin.Context) {
  me, err := ah.authService.GetMe(c.Request.Context())
  if err != nil {
    respondError(c, err)
    return
  }
  respondSuccess(c, http.StatusOK, "", gin.H{"user": me})
}

func (ah *AuthHandler) UpdateProfile(c *gin.Context) {
  var patch services.ProfileUpdate
  if err := c.ShouldBindJSON(&patch); err != nil {
    respondError(c, apperr.NewValidation("invalid request body"))
    return
  }
  updated, err := ah.authService.UpdateProfile(c.Request.Context(), &patch)
  if err != nil {
    respondError(c, err)
    return
  }
  respondSuccess(c, http.StatusOK, "Profile updated successfully", gin.H{"user": updated})
}

func (ah *AuthHandler) GetAllUsers(c *gin.Context) {
  users, err := ah.authService.GetAllUsers(c.Request.Context())
  if err != nil {
    respondError(c, err)
    return
  }
  respondSuccess(c, http.StatusOK, "", gin.H{"users": users, "total": len(users)})
}
