package services

import (
  "context"
  "fmt"
  "testing"
  "time"

  "github.com/google/uuid"
  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/coped-org/coped-backend/internal/apperr"
  "github.com/coped-org/coped-backend/internal/logger"
  "github.com/coped-org/coped-backend/internal/requestdata"
  "github.com/coped-org/coped-backend/internal/types"
)

type messageTestEnv struct {
  users    *fakeUserRepo
  rooms    *fakeChatRoomRepo
  messages *fakeChatMessageRepo
  service  MessageService
  user     *types.User
  room     *types.ChatRoom
  ctx      context.Context
}

func newMessageTestEnv(t *testing.T) *messageTestEnv {
  t.Helper()
  users := newFakeUserRepo()
  rooms := newFakeChatRoomRepo()
  messages := newFakeChatMessageRepo()

  user := &types.User{
    ID:             uuid.New(),
    Name:           "Test User",
    Email:          "test@example.com",
    IsActive:       true,
    RagPreferences: types.DefaultRagPreferences(),
  }
  users.users[user.ID] = user

  room := &types.ChatRoom{
    ID:           uuid.New(),
    UserID:       user.ID,
    RoomID:       uuid.New().String(),
    Title:        "Diskusi",
    IsActive:     true,
    LastActivity: time.Now().Add(-time.Hour),
  }
  rooms.rooms[room.ID] = room

  ctx := requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
    UserID: user.ID,
    Role:   types.RoleUser,
  })
  return &messageTestEnv{
    users:    users,
    rooms:    rooms,
    messages: messages,
    service:  NewMessageService(nil, logger.NewNop(), users, rooms, messages),
    user:     user,
    room:     room,
    ctx:      ctx,
  }
}

func (env *messageTestEnv) seedMessages(t *testing.T, count int) {
  t.Helper()
  base := time.Now().Add(-time.Duration(count) * time.Minute)
  for i := 0; i < count; i++ {
    _, err := env.messages.CreateMessages(env.ctx, nil, []*types.ChatMessage{{
      RoomID:    env.room.ID,
      Question:  fmt.Sprintf("question %d", i),
      Answer:    fmt.Sprintf("answer %d", i),
      RagSystem: types.RagSystemNative,
      CreatedAt: base.Add(time.Duration(i) * time.Minute),
    }})
    require.NoError(t, err)
  }
}

func TestGetRoomMessagesPagination(t *testing.T) {
  env := newMessageTestEnv(t)
  env.seedMessages(t, 7)

  page1, err := env.service.GetRoomMessages(env.ctx, env.room.RoomID, 1, 3)
  require.NoError(t, err)
  assert.Equal(t, env.room.RoomID, page1.Room.RoomID)
  assert.Len(t, page1.Messages, 3)
  assert.Equal(t, 1, page1.Pagination.Current)
  assert.Equal(t, 3, page1.Pagination.Total)
  assert.True(t, page1.Pagination.HasNext)
  assert.False(t, page1.Pagination.HasPrev)

  page2, err := env.service.GetRoomMessages(env.ctx, env.room.RoomID, 2, 3)
  require.NoError(t, err)
  assert.Len(t, page2.Messages, 3)
  assert.True(t, page2.Pagination.HasNext)
  assert.True(t, page2.Pagination.HasPrev)

  page3, err := env.service.GetRoomMessages(env.ctx, env.room.RoomID, 3, 3)
  require.NoError(t, err)
  assert.Len(t, page3.Messages, 1)
  assert.False(t, page3.Pagination.HasNext)
  assert.True(t, page3.Pagination.HasPrev)

  // Pages together cover every message exactly once.
  seen := make(map[uuid.UUID]bool)
  for _, page := range [][]*types.ChatMessage{page1.Messages, page2.Messages, page3.Messages} {
    for _, msg := range page {
      assert.False(t, seen[msg.ID], "message %s appears twice", msg.ID)
      seen[msg.ID] = true
    }
  }
  assert.Len(t, seen, 7)
}

func TestGetRoomMessagesOutOfRangePage(t *testing.T) {
  env := newMessageTestEnv(t)
  env.seedMessages(t, 2)

  result, err := env.service.GetRoomMessages(env.ctx, env.room.RoomID, 5, 10)
  require.NoError(t, err)
  assert.Empty(t, result.Messages)
  assert.Equal(t, 5, result.Pagination.Current)
  assert.Equal(t, 1, result.Pagination.Total)
  assert.False(t, result.Pagination.HasNext)
  assert.True(t, result.Pagination.HasPrev)
}

func TestGetRoomMessagesDefaults(t *testing.T) {
  env := newMessageTestEnv(t)
  env.seedMessages(t, 1)

  result, err := env.service.GetRoomMessages(env.ctx, env.room.RoomID, 0, 0)
  require.NoError(t, err)
  assert.Equal(t, 1, result.Pagination.Current)
  assert.Len(t, result.Messages, 1)
}

func TestGetRoomMessagesNewestFirst(t *testing.T) {
  env := newMessageTestEnv(t)
  env.seedMessages(t, 3)

  result, err := env.service.GetRoomMessages(env.ctx, env.room.RoomID, 1, 10)
  require.NoError(t, err)
  require.Len(t, result.Messages, 3)
  assert.Equal(t, "question 2", result.Messages[0].Question)
  assert.Equal(t, "question 0", result.Messages[2].Question)
}

func TestGetRoomMessagesRoomNotFound(t *testing.T) {
  env := newMessageTestEnv(t)

  _, err := env.service.GetRoomMessages(env.ctx, uuid.New().String(), 1, 10)
  require.Error(t, err)
  assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestAppendAskResult(t *testing.T) {
  env := newMessageTestEnv(t)
  before := env.room.LastActivity

  result := &RagResult{
    Answer:       "Pasal 28 menjamin kebebasan berpendapat.",
    System:       types.RagSystemNative,
    Accuracy:     NativeAccuracy,
    ResponseTime: 42,
    Sources:      []string{"UUD 1945 Pasal 28"},
    GeminiModel:  NativeModel,
  }
  require.NoError(t, env.service.AppendAskResult(env.ctx, env.room.RoomID, "Apa isi Pasal 28?", result))

  count, err := env.messages.CountByRoomID(env.ctx, nil, env.room.ID)
  require.NoError(t, err)
  assert.Equal(t, int64(1), count)

  latest, err := env.messages.LatestByRoomID(env.ctx, nil, env.room.ID)
  require.NoError(t, err)
  require.NotNil(t, latest)
  assert.Equal(t, "Apa isi Pasal 28?", latest.Question)
  assert.Equal(t, result.Answer, latest.Answer)
  assert.Equal(t, NativeAccuracy, latest.Accuracy)
  assert.JSONEq(t, `["UUD 1945 Pasal 28"]`, string(latest.Sources))

  assert.True(t, env.room.LastActivity.After(before), "append refreshes room activity")
}

func TestAppendAskResultSkipsMissingRoom(t *testing.T) {
  env := newMessageTestEnv(t)

  err := env.service.AppendAskResult(env.ctx, uuid.New().String(), "q", &RagResult{Answer: "a"})
  assert.NoError(t, err, "missing room is not an error")

  count, err := env.messages.CountByRoomID(env.ctx, nil, env.room.ID)
  require.NoError(t, err)
  assert.Equal(t, int64(0), count)
}

func TestAppendAskResultHonorsSaveHistoryOff(t *testing.T) {
  env := newMessageTestEnv(t)
  env.user.RagPreferences.SaveHistory = false

  err := env.service.AppendAskResult(env.ctx, env.room.RoomID, "q", &RagResult{Answer: "a"})
  assert.NoError(t, err)

  count, err := env.messages.CountByRoomID(env.ctx, nil, env.room.ID)
  require.NoError(t, err)
  assert.Equal(t, int64(0), count)
}

func TestRateMessage(t *testing.T) {
  env := newMessageTestEnv(t)
  env.seedMessages(t, 1)
  latest, err := env.messages.LatestByRoomID(env.ctx, nil, env.room.ID)
  require.NoError(t, err)
  require.NotNil(t, latest)

  require.NoError(t, env.service.RateMessage(env.ctx, env.room.RoomID, latest.ID.String(), 4))
  require.NotNil(t, latest.UserRating)
  assert.Equal(t, 4, *latest.UserRating)
}

func TestRateMessageValidation(t *testing.T) {
  env := newMessageTestEnv(t)
  env.seedMessages(t, 1)
  latest, err := env.messages.LatestByRoomID(env.ctx, nil, env.room.ID)
  require.NoError(t, err)

  for _, rating := range []int{0, 6, -1} {
    err := env.service.RateMessage(env.ctx, env.room.RoomID, latest.ID.String(), rating)
    require.Error(t, err, "rating %d", rating)
    assert.True(t, apperr.IsKind(err, apperr.Validation))
  }

  err = env.service.RateMessage(env.ctx, env.room.RoomID, "not-a-uuid", 3)
  require.Error(t, err)
  assert.True(t, apperr.IsKind(err, apperr.Validation))

  err = env.service.RateMessage(env.ctx, env.room.RoomID, uuid.New().String(), 3)
  require.Error(t, err)
  assert.True(t, apperr.IsKind(err, apperr.NotFound))
}
