package services

import (
  "context"
  "sort"
  "sync"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/coped-org/coped-backend/internal/types"
)

// In-memory repo fakes. They ignore tx and keep everything in maps so
// service behavior can be exercised without a database.

type fakeUserRepo struct {
  users map[uuid.UUID]*types.User
}

func newFakeUserRepo() *fakeUserRepo {
  return &fakeUserRepo{users: make(map[uuid.UUID]*types.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
  for _, user := range users {
    if user.ID == uuid.Nil {
      user.ID = uuid.New()
    }
    f.users[user.ID] = user
  }
  return users, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
  user, ok := f.users[userID]
  if !ok {
    return nil, gorm.ErrRecordNotFound
  }
  return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
  for _, user := range f.users {
    if user.Email == email {
      return user, nil
    }
  }
  return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
  _, err := f.GetByEmail(ctx, tx, email)
  if err == nil {
    return true, nil
  }
  return false, nil
}

func (f *fakeUserRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.User, error) {
  all := make([]*types.User, 0, len(f.users))
  for _, user := range f.users {
    all = append(all, user)
  }
  return all, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
  if _, ok := f.users[user.ID]; !ok {
    return nil, gorm.ErrRecordNotFound
  }
  f.users[user.ID] = user
  return user, nil
}

func (f *fakeUserRepo) TouchLastLogin(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
  user, ok := f.users[userID]
  if !ok {
    return gorm.ErrRecordNotFound
  }
  user.LastLogin = time.Now()
  return nil
}

type fakeChatRoomRepo struct {
  rooms map[uuid.UUID]*types.ChatRoom
}

func newFakeChatRoomRepo() *fakeChatRoomRepo {
  return &fakeChatRoomRepo{rooms: make(map[uuid.UUID]*types.ChatRoom)}
}

func (f *fakeChatRoomRepo) CreateRoom(ctx context.Context, tx *gorm.DB, room *types.ChatRoom) (*types.ChatRoom, error) {
  if room.ID == uuid.Nil {
    room.ID = uuid.New()
  }
  f.rooms[room.ID] = room
  return room, nil
}

func (f *fakeChatRoomRepo) GetByRoomID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, roomID string) (*types.ChatRoom, error) {
  for _, room := range f.rooms {
    if room.UserID == userID && room.RoomID == roomID {
      return room, nil
    }
  }
  return nil, gorm.ErrRecordNotFound
}

func (f *fakeChatRoomRepo) GetUserRooms(ctx context.Context, tx *gorm.DB, userID uuid.UUID, onlyActive bool) ([]*types.ChatRoom, error) {
  var rooms []*types.ChatRoom
  for _, room := range f.rooms {
    if room.UserID != userID {
      continue
    }
    if onlyActive && !room.IsActive {
      continue
    }
    rooms = append(rooms, room)
  }
  sort.Slice(rooms, func(i, j int) bool {
    return rooms[i].LastActivity.After(rooms[j].LastActivity)
  })
  return rooms, nil
}

func (f *fakeChatRoomRepo) CountUserRooms(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
  var count int64
  for _, room := range f.rooms {
    if room.UserID == userID {
      count++
    }
  }
  return count, nil
}

func (f *fakeChatRoomRepo) CountActiveRooms(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
  var count int64
  for _, room := range f.rooms {
    if room.UserID == userID && room.IsActive {
      count++
    }
  }
  return count, nil
}

func (f *fakeChatRoomRepo) Deactivate(ctx context.Context, tx *gorm.DB, room *types.ChatRoom) error {
  stored, ok := f.rooms[room.ID]
  if !ok {
    return gorm.ErrRecordNotFound
  }
  stored.IsActive = false
  return nil
}

func (f *fakeChatRoomRepo) TouchLastActivity(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, at time.Time) error {
  room, ok := f.rooms[roomID]
  if !ok {
    return gorm.ErrRecordNotFound
  }
  room.LastActivity = at
  return nil
}

type fakeChatMessageRepo struct {
  messages map[uuid.UUID]*types.ChatMessage
}

func newFakeChatMessageRepo() *fakeChatMessageRepo {
  return &fakeChatMessageRepo{messages: make(map[uuid.UUID]*types.ChatMessage)}
}

func (f *fakeChatMessageRepo) CreateMessages(ctx context.Context, tx *gorm.DB, msgs []*types.ChatMessage) ([]*types.ChatMessage, error) {
  for _, msg := range msgs {
    if msg.ID == uuid.Nil {
      msg.ID = uuid.New()
    }
    if msg.CreatedAt.IsZero() {
      msg.CreatedAt = time.Now()
    }
    f.messages[msg.ID] = msg
  }
  return msgs, nil
}

func (f *fakeChatMessageRepo) roomMessages(roomID uuid.UUID) []*types.ChatMessage {
  var msgs []*types.ChatMessage
  for _, msg := range f.messages {
    if msg.RoomID == roomID {
      msgs = append(msgs, msg)
    }
  }
  sort.Slice(msgs, func(i, j int) bool {
    return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
  })
  return msgs
}

func (f *fakeChatMessageRepo) GetByRoomID(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, offset, limit int) ([]*types.ChatMessage, error) {
  msgs := f.roomMessages(roomID)
  if offset >= len(msgs) {
    return []*types.ChatMessage{}, nil
  }
  msgs = msgs[offset:]
  if limit > 0 && len(msgs) > limit {
    msgs = msgs[:limit]
  }
  return msgs, nil
}

func (f *fakeChatMessageRepo) GetByID(ctx context.Context, tx *gorm.DB, roomID, messageID uuid.UUID) (*types.ChatMessage, error) {
  msg, ok := f.messages[messageID]
  if !ok || msg.RoomID != roomID {
    return nil, gorm.ErrRecordNotFound
  }
  return msg, nil
}

func (f *fakeChatMessageRepo) CountByRoomID(ctx context.Context, tx *gorm.DB, roomID uuid.UUID) (int64, error) {
  return int64(len(f.roomMessages(roomID))), nil
}

func (f *fakeChatMessageRepo) LatestByRoomID(ctx context.Context, tx *gorm.DB, roomID uuid.UUID) (*types.ChatMessage, error) {
  msgs := f.roomMessages(roomID)
  if len(msgs) == 0 {
    return nil, nil
  }
  return msgs[0], nil
}

func (f *fakeChatMessageRepo) UpdateRating(ctx context.Context, tx *gorm.DB, messageID uuid.UUID, rating int) error {
  msg, ok := f.messages[messageID]
  if !ok {
    return gorm.ErrRecordNotFound
  }
  msg.UserRating = &rating
  return nil
}

type fakeUserTokenRepo struct {
  tokens map[uuid.UUID]*types.UserToken
}

func newFakeUserTokenRepo() *fakeUserTokenRepo {
  return &fakeUserTokenRepo{tokens: make(map[uuid.UUID]*types.UserToken)}
}

func (f *fakeUserTokenRepo) Create(ctx context.Context, tx *gorm.DB, userTokens []*types.UserToken) ([]*types.UserToken, error) {
  for _, token := range userTokens {
    if token.ID == uuid.Nil {
      token.ID = uuid.New()
    }
    f.tokens[token.ID] = token
  }
  return userTokens, nil
}

func (f *fakeUserTokenRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.UserToken, error) {
  var found []*types.UserToken
  for _, token := range f.tokens {
    for _, id := range userIDs {
      if token.UserID == id {
        found = append(found, token)
      }
    }
  }
  return found, nil
}

func (f *fakeUserTokenRepo) GetByAccessTokens(ctx context.Context, tx *gorm.DB, accessTokens []string) ([]*types.UserToken, error) {
  var found []*types.UserToken
  for _, token := range f.tokens {
    for _, at := range accessTokens {
      if token.AccessToken == at {
        found = append(found, token)
      }
    }
  }
  return found, nil
}

func (f *fakeUserTokenRepo) GetByRefreshTokens(ctx context.Context, tx *gorm.DB, refreshTokens []string) ([]*types.UserToken, error) {
  var found []*types.UserToken
  for _, token := range f.tokens {
    for _, rt := range refreshTokens {
      if token.RefreshToken == rt {
        found = append(found, token)
      }
    }
  }
  return found, nil
}

func (f *fakeUserTokenRepo) FullDeleteByTokens(ctx context.Context, tx *gorm.DB, userTokens []*types.UserToken) error {
  for _, token := range userTokens {
    delete(f.tokens, token.ID)
  }
  return nil
}

// stubInvoker answers every invocation with canned output, or an
// error, per system.
type stubInvoker struct {
  mu     sync.Mutex
  output map[string][]byte
  errs   map[string]error
  calls  []string
}

func (s *stubInvoker) Invoke(ctx context.Context, system, question, userID string) ([]byte, error) {
  s.mu.Lock()
  s.calls = append(s.calls, system)
  s.mu.Unlock()
  if err, ok := s.errs[system]; ok {
    return nil, err
  }
  return s.output[system], nil
}

// blockingInvoker waits until ctx is cancelled, mimicking a hung
// back-end process.
type blockingInvoker struct{}

func (b *blockingInvoker) Invoke(ctx context.Context, system, question, userID string) ([]byte, error) {
  <-ctx.Done()
  return nil, ctx.Err()
}
