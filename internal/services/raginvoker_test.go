package services

import (
  "context"
  "net/http"
  "net/http/httptest"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/coped-org/coped-backend/internal/logger"
  "github.com/coped-org/coped-backend/internal/types"
)

func TestHTTPInvoker(t *testing.T) {
  var gotQuery map[string]string
  var gotAuth string
  server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    gotQuery = map[string]string{
      "mode":     r.URL.Query().Get("mode"),
      "question": r.URL.Query().Get("question"),
      "user_id":  r.URL.Query().Get("user_id"),
    }
    gotAuth = r.Header.Get("Authorization")
    w.Write([]byte(`{"answer":"jawaban","response_time":12.5}`))
  }))
  defer server.Close()

  invoker, err := NewHTTPInvoker(logger.NewNop(), server.URL, "test-key")
  require.NoError(t, err)

  out, err := invoker.Invoke(context.Background(), types.RagSystemNative, "Apa isi Pasal 28?", "user-1")
  require.NoError(t, err)
  assert.JSONEq(t, `{"answer":"jawaban","response_time":12.5}`, string(out))
  assert.Equal(t, types.RagSystemNative, gotQuery["mode"])
  assert.Equal(t, "Apa isi Pasal 28?", gotQuery["question"])
  assert.Equal(t, "user-1", gotQuery["user_id"])
  assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestHTTPInvokerDefaultsAnonymousUser(t *testing.T) {
  var gotUserID string
  server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    gotUserID = r.URL.Query().Get("user_id")
    w.Write([]byte("ok"))
  }))
  defer server.Close()

  invoker, err := NewHTTPInvoker(logger.NewNop(), server.URL, "")
  require.NoError(t, err)

  _, err = invoker.Invoke(context.Background(), types.RagSystemLangChain, "q", "")
  require.NoError(t, err)
  assert.Equal(t, "anonymous", gotUserID)
}

func TestHTTPInvokerNon2xx(t *testing.T) {
  server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    http.Error(w, "backend down", http.StatusBadGateway)
  }))
  defer server.Close()

  invoker, err := NewHTTPInvoker(logger.NewNop(), server.URL, "")
  require.NoError(t, err)

  _, err = invoker.Invoke(context.Background(), types.RagSystemNative, "q", "user-1")
  require.Error(t, err)
  assert.Contains(t, err.Error(), "502")
}

func TestNewHTTPInvokerRequiresBaseURL(t *testing.T) {
  _, err := NewHTTPInvoker(logger.NewNop(), "", "key")
  assert.Error(t, err)
}
