package services

import (
  "context"
  "crypto/sha256"
  "encoding/hex"
  "encoding/json"
  "fmt"
  "strings"
  "time"

  "github.com/redis/go-redis/v9"

  "github.com/coped-org/coped-backend/internal/logger"
)

// RagCache keeps recent answers in redis so repeated questions skip
// the back-end entirely. The cache is strictly best-effort: any redis
// failure is logged and treated as a miss.
type RagCache struct {
  log    *logger.Logger
  client *redis.Client
  ttl    time.Duration
}

func NewRagCache(log *logger.Logger, address, password string, ttl time.Duration) (*RagCache, error) {
  opt := &redis.Options{
    Addr:     address,
    Password: password,
    DB:       0,
  }
  rdb := redis.NewClient(opt)

  ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
  defer cancel()
  if err := rdb.Ping(ctx).Err(); err != nil {
    return nil, fmt.Errorf("redis ping failed: %w", err)
  }
  return &RagCache{
    log:    log.With("component", "RagCache"),
    client: rdb,
    ttl:    ttl,
  }, nil
}

func (rc *RagCache) key(system, question string) string {
  sum := sha256.Sum256([]byte(strings.ToLower(question)))
  return fmt.Sprintf("coped:rag:%s:%s", system, hex.EncodeToString(sum[:]))
}

func (rc *RagCache) Get(ctx context.Context, system, question string) (*RagResult, bool) {
  raw, err := rc.client.Get(ctx, rc.key(system, question)).Bytes()
  if err == redis.Nil {
    return nil, false
  }
  if err != nil {
    rc.log.Warn("redis get failed, treating as cache miss", "error", err)
    return nil, false
  }
  var res RagResult
  if err := json.Unmarshal(raw, &res); err != nil {
    rc.log.Warn("failed to decode cached rag result, treating as cache miss", "error", err)
    return nil, false
  }
  return &res, true
}

func (rc *RagCache) Set(ctx context.Context, system, question string, res *RagResult) {
  raw, err := json.Marshal(res)
  if err != nil {
    rc.log.Warn("failed to encode rag result for cache", "error", err)
    return
  }
  if err := rc.client.Set(ctx, rc.key(system, question), raw, rc.ttl).Err(); err != nil {
    rc.log.Warn("redis set failed, answer not cached", "error", err)
  }
}

func (rc *RagCache) Close() error {
  return rc.client.Close()
}
