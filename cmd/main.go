package main

import (
  "fmt"
  "os"
  "strings"
  "time"

  "github.com/joho/godotenv"

  "github.com/coped-org/coped-backend/internal/db"
  "github.com/coped-org/coped-backend/internal/handlers"
  "github.com/coped-org/coped-backend/internal/logger"
  "github.com/coped-org/coped-backend/internal/middleware"
  "github.com/coped-org/coped-backend/internal/repos"
  "github.com/coped-org/coped-backend/internal/seed"
  "github.com/coped-org/coped-backend/internal/server"
  "github.com/coped-org/coped-backend/internal/services"
  "github.com/coped-org/coped-backend/internal/utils"
)

func main() {
  // Logger Setup
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Environment Variables
  if err := godotenv.Load(); err != nil {
    log.Info("No .env file found, relying on environment variables")
  }
  log.Info("Attempting to load environment variables for Main now...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
  redisAddress := utils.GetEnv("REDIS_ADDRESS", "localhost:6379", log)
  redisPassword := utils.GetEnv("REDIS_PASSWORD", "", log)
  ragCacheTTL := utils.GetEnvAsInt("RAG_CACHE_TTL", 3600, log)
  ragTimeout := utils.GetEnvAsInt("RAG_TIMEOUT", 30, log)
  allowOrigins := utils.GetEnv("ALLOWED_ORIGINS", "http://localhost:3000", log)
  log.Info("Environment variables loaded for Main :)")

  // Postgres Setup
  log.Info("Setting Up Postgres from Main now...")
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("DB init failed, cannot continue", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()
  log.Info("Postgres Setup From Main Successful :)")

  // Repositories Setup
  log.Info("Setting Up Repositories from Main now...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  chatRoomRepo := repos.NewChatRoomRepo(thePG, log)
  chatMessageRepo := repos.NewChatMessageRepo(thePG, log)
  log.Info("Repositories Set Up From Main Successful :)")

  // Seed Setup
  log.Info("Attempting to Seed The Postgres From Main now...")
  if err := seed.SeedAll(thePG, log, userRepo); err != nil {
    log.Warn("Failed to seed data :(", "error", err)
  }
  log.Info("Seeding of Postgres From Main Successful :)")

  // Rag Cache Setup
  log.Info("Setting Up Rag Answer Cache From Main Now :)")
  var ragCache *services.RagCache
  ragCache, err = services.NewRagCache(log, redisAddress, redisPassword, time.Duration(ragCacheTTL)*time.Second)
  if err != nil {
    log.Warn("Failed to init rag answer cache, answers will not be cached", "error", err)
    ragCache = nil
  } else {
    defer ragCache.Close()
    log.Info("Rag answer cache is active!")
  }

  // Rag Invoker Setup
  log.Info("Setting Up Rag Invoker From Main Now :)")
  var ragInvoker services.RagInvoker
  ragTransport := utils.GetEnv("RAG_TRANSPORT", "process", log)
  switch ragTransport {
  case "http":
    ragBaseURL := utils.GetEnv("RAG_API_URL", "", log)
    ragAPIKey := utils.GetEnv("RAG_API_KEY", "", log)
    httpInvoker, hErr := services.NewHTTPInvoker(log, ragBaseURL, ragAPIKey)
    if hErr != nil {
      log.Error("Fatal error: Cannot init HTTP rag invoker", "error", hErr)
      os.Exit(1)
    }
    ragInvoker = httpInvoker
  default:
    pythonPath := utils.GetEnv("RAG_PYTHON_PATH", "python3", log)
    bridgePath := utils.GetEnv("RAG_BRIDGE_PATH", "gemini_api/api_bridge.py", log)
    ragInvoker = services.NewProcessInvoker(log, pythonPath, bridgePath)
  }

  // Services Setup
  log.Info("Setting up Services from Main now...")
  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  chatRoomService := services.NewChatRoomService(thePG, log, userRepo, chatRoomRepo, chatMessageRepo)
  messageService := services.NewMessageService(thePG, log, userRepo, chatRoomRepo, chatMessageRepo)
  ragService := services.NewRagService(log, ragInvoker, ragCache, time.Duration(ragTimeout)*time.Second)
  log.Info("Services Set Up From Main Successful :)")

  // Handler Setup
  log.Info("Setting Up Handlers from Main now...")
  authHandler := handlers.NewAuthHandler(authService)
  chatHandler := handlers.NewChatHandler(log, chatRoomService, messageService, ragService)
  log.Info("Handlers Set Up From Main Successful :)")

  // MiddleWare Setup
  log.Info("Setting Up Middleware from Main now...")
  authMiddleware := middleware.NewAuthMiddleware(log, authService)
  log.Info("Middleware Set Up From Main Successful :)")

  // Router Setup
  log.Info("Setting Up Router from Main now...")
  router := server.NewRouter(server.RouterConfig{
    AllowOrigins:   strings.Split(allowOrigins, ","),
    AuthHandler:    authHandler,
    ChatHandler:    chatHandler,
    AuthMiddleware: authMiddleware,
  })
  log.Info("Router Set Up From Main Successful :)")

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Error("Server failed", "error", err)
  }
}
