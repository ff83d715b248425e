package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/coped-org/coped-backend/internal/apperr"
  "github.com/coped-org/coped-backend/internal/logger"
  "github.com/coped-org/coped-backend/internal/normalization"
  "github.com/coped-org/coped-backend/internal/requestdata"
  "github.com/coped-org/coped-backend/internal/services"
)

type ChatHandler struct {
  log            *logger.Logger
  roomService    services.ChatRoomService
  messageService services.MessageService
  ragService     services.RagService
}

func NewChatHandler(log *logger.Logger, roomService services.ChatRoomService, messageService services.MessageService, ragService services.RagService) *ChatHandler {
  return &ChatHandler{
    log:            log.With("handler", "ChatHandler"),
    roomService:    roomService,
    messageService: messageService,
    ragService:     ragService,
  }
}

func (ch *ChatHandler) CreateRoom(c *gin.Context) {
  var req struct {
    Title string `json:"title"`
  }
  if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
    respondError(c, apperr.NewValidation("invalid request body"))
    return
  }
  room, err := ch.roomService.CreateRoom(c.Request.Context(), req.Title)
  if err != nil {
    respondError(c, err)
    return
  }
  respondSuccess(c, http.StatusCreated, "Chat room created successfully", gin.H{"room": room})
}

func (ch *ChatHandler) GetRooms(c *gin.Context) {
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
  onlyActive := c.DefaultQuery("active", "true") == "true"

  list, err := ch.roomService.GetRooms(c.Request.Context(), limit, onlyActive)
  if err != nil {
    respondError(c, err)
    return
  }
  respondSuccess(c, http.StatusOK, "", gin.H{"rooms": list.Rooms, "total": list.Total})
}

func (ch *ChatHandler) GetRoomMessages(c *gin.Context) {
  roomID := c.Param("roomId")
  page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

  result, err := ch.messageService.GetRoomMessages(c.Request.Context(), roomID, page, limit)
  if err != nil {
    respondError(c, err)
    return
  }
  respondSuccess(c, http.StatusOK, "", gin.H{
    "room":       result.Room,
    "messages":   result.Messages,
    "pagination": result.Pagination,
  })
}

func (ch *ChatHandler) DeleteRoom(c *gin.Context) {
  roomID := c.Param("roomId")
  if err := ch.roomService.DeleteRoom(c.Request.Context(), roomID); err != nil {
    respondError(c, err)
    return
  }
  respondSuccess(c, http.StatusOK, "Chat room deleted successfully", nil)
}

func (ch *ChatHandler) RateMessage(c *gin.Context) {
  var req struct {
    Rating int `json:"rating"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    respondError(c, apperr.NewValidation("invalid request body"))
    return
  }
  roomID := c.Param("roomId")
  messageID := c.Param("messageId")
  if err := ch.messageService.RateMessage(c.Request.Context(), roomID, messageID, req.Rating); err != nil {
    respondError(c, err)
    return
  }
  respondSuccess(c, http.StatusOK, "Message rated successfully", nil)
}

// Ask answers a question and, when a room is given, records the
// exchange as history. History persistence is best-effort and never
// fails the ask.
func (ch *ChatHandler) Ask(c *gin.Context) {
  var req struct {
    Question  string `json:"question"`
    RoomID    string `json:"roomId"`
    RagSystem string `json:"ragSystem"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    respondError(c, apperr.NewValidation("invalid request body"))
    return
  }
  if req.RagSystem == "" {
    req.RagSystem = services.RagModeAuto
  }
  ctx := c.Request.Context()
  userID := ""
  if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
    userID = rd.UserID.String()
  }

  result, err := ch.ragService.Ask(ctx, req.Question, req.RagSystem, userID)
  if err != nil {
    respondError(c, err)
    return
  }

  if req.RoomID != "" {
    if aErr := ch.messageService.AppendAskResult(ctx, req.RoomID, req.Question, result); aErr != nil {
      ch.log.Warn("Failed to append ask result to chat history", "roomID", req.RoomID, "error", aErr)
    }
  }

  var roomID interface{}
  if req.RoomID != "" {
    roomID = req.RoomID
  }
  respondSuccess(c, http.StatusOK, "", gin.H{
    "question":     normalization.ParseInputString(req.Question),
    "answer":       result.Answer,
    "system":       result.System,
    "accuracy":     result.Accuracy,
    "responseTime": result.ResponseTime,
    "sources":      result.Sources,
    "geminiModel":  result.GeminiModel,
    "roomId":       roomID,
    "cached":       result.Cached,
  })
}

func (ch *ChatHandler) Compare(c *gin.Context) {
  var req struct {
    Question string `json:"question"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    respondError(c, apperr.NewValidation("invalid request body"))
    return
  }
  ctx := c.Request.Context()
  userID := ""
  if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
    userID = rd.UserID.String()
  }
  result, err := ch.ragService.Compare(ctx, req.Question, userID)
  if err != nil {
    respondError(c, err)
    return
  }
  respondSuccess(c, http.StatusOK, "", gin.H{
    "question":       result.Question,
    "native":         result.Native,
    "langchain":      result.LangChain,
    "recommendation": result.Recommendation,
  })
}
