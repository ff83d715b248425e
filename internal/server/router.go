package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/coped-org/coped-backend/internal/handlers"
  "github.com/coped-org/coped-backend/internal/middleware"
)

type RouterConfig struct {
  AllowOrigins   []string
  AuthHandler    *handlers.AuthHandler
  ChatHandler    *handlers.ChatHandler
  AuthMiddleware *middleware.AuthMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  //-----------------------------------------
  // Cors Setup
  //-----------------------------------------
  allowOrigins := cfg.AllowOrigins
  if len(allowOrigins) == 0 {
    allowOrigins = []string{"http://localhost:3000"}
  }
  router.Use(cors.New(cors.Config{
    AllowOrigins:     allowOrigins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  //-----------------------------------------
  // Health Routes
  //-----------------------------------------
  router.GET("/", handlers.Root)
  router.GET("/api/health", handlers.Health)

  //-----------------------------------------
  // Public Routes
  //-----------------------------------------
  auth := router.Group("/api/auth")
  {
    auth.POST("/register", cfg.AuthHandler.Register)
    auth.POST("/login", cfg.AuthHandler.Login)
  }

  //------------------------------------------
  // Protected Routes
  //------------------------------------------
  protectedAuth := auth.Group("/")
  protectedAuth.Use(cfg.AuthMiddleware.RequireAuth())
  protectedAuth.POST("/refresh", cfg.AuthHandler.Refresh)
  protectedAuth.POST("/logout", cfg.AuthHandler.Logout)
  protectedAuth.GET("/me", cfg.AuthHandler.GetMe)
  protectedAuth.PUT("/profile", cfg.AuthHandler.UpdateProfile)

  // Admin only
  admin := auth.Group("/")
  admin.Use(cfg.AuthMiddleware.RequireRole("admin"))
  admin.GET("/users", cfg.AuthHandler.GetAllUsers)

  // Chat
  chat := router.Group("/api/chat")
  chat.Use(cfg.AuthMiddleware.RequireAuth())
  chat.POST("/rooms", cfg.ChatHandler.CreateRoom)
  chat.GET("/rooms", cfg.ChatHandler.GetRooms)
  chat.GET("/rooms/:roomId/messages", cfg.ChatHandler.GetRoomMessages)
  chat.DELETE("/rooms/:roomId", cfg.ChatHandler.DeleteRoom)
  chat.PUT("/rooms/:roomId/messages/:messageId/rating", cfg.ChatHandler.RateMessage)
  chat.POST("/ask", cfg.ChatHandler.Ask)
  chat.POST("/compare", cfg.ChatHandler.Compare)

  return router
}
