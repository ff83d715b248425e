package handlers

import (
  "net/http"
  "time"

  "github.com/gin-gonic/gin"
)

var startedAt = time.Now()

func Root(c *gin.Context) {
  c.JSON(http.StatusOK, gin.H{
    "success":   true,
    "message":   "CoPed Constitutional Pedia API Server",
    "version":   "1.0.0",
    "timestamp": time.Now().UTC().Format(time.RFC3339),
    "endpoints": gin.H{
      "auth":   "/api/auth",
      "chat":   "/api/chat",
      "health": "/api/health",
    },
  })
}

func Health(c *gin.Context) {
  c.JSON(http.StatusOK, gin.H{
    "success":   true,
    "message":   "Server is healthy",
    "timestamp": time.Now().UTC().Format(time.RFC3339),
    "uptime":    time.Since(startedAt).Seconds(),
  })
}
