package handlers

import (
  "errors"

  "github.com/gin-gonic/gin"

  "github.com/coped-org/coped-backend/internal/apperr"
)

// Every response uses the same envelope:
// {success, message?, data?, error?, errors?}.

func respondSuccess(c *gin.Context, status int, message string, data gin.H) {
  body := gin.H{"success": true}
  if message != "" {
    body["message"] = message
  }
  if data != nil {
    body["data"] = data
  }
  c.JSON(status, body)
}

func respondError(c *gin.Context, err error) {
  body := gin.H{
    "success": false,
    "message": apperr.UserMessage(err),
  }
  var ae *apperr.Error
  if errors.As(err, &ae) {
    body["error"] = ae.Kind.String()
    if len(ae.Fields) > 0 {
      body["errors"] = ae.Fields
    }
  }
  c.JSON(apperr.HTTPStatus(err), body)
}
