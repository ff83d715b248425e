package services

import (
  "bytes"
  "context"
  "fmt"
  "io"
  "net/http"
  "net/url"
  "os/exec"
  "strings"

  "github.com/coped-org/coped-backend/internal/logger"
)

// RagPayload is the structured contract a back-end emits on stdout
// (or in its response body) on success.
type RagPayload struct {
  Answer       string   `json:"answer"`
  ResponseTime float64  `json:"response_time,omitempty"`
  Sources      []string `json:"sources,omitempty"`
}

// RagInvoker is the transport behind a single back-end call. The
// dispatcher owns the timeout policy; invokers only honor ctx.
type RagInvoker interface {
  Invoke(ctx context.Context, system, question, userID string) ([]byte, error)
}

// ProcessInvoker spawns the python RAG bridge and captures its stdout.
// A non-zero exit surfaces the bridge's stderr as the failure detail.
type ProcessInvoker struct {
  log        *logger.Logger
  pythonPath string
  bridgePath string
}

func NewProcessInvoker(log *logger.Logger, pythonPath, bridgePath string) *ProcessInvoker {
  if pythonPath == "" {
    pythonPath = "python3"
  }
  return &ProcessInvoker{
    log:        log.With("invoker", "ProcessInvoker"),
    pythonPath: pythonPath,
    bridgePath: bridgePath,
  }
}

func (pi *ProcessInvoker) Invoke(ctx context.Context, system, question, userID string) ([]byte, error) {
  if userID == "" {
    userID = "anonymous"
  }
  cmd := exec.CommandContext(ctx, pi.pythonPath, pi.bridgePath,
    "--mode", system,
    "--question", question,
    "--user-id", userID,
    "--format", "json",
  )
  var stdout, stderr bytes.Buffer
  cmd.Stdout = &stdout
  cmd.Stderr = &stderr

  pi.log.Debug("Invoking RAG bridge process", "system", system, "userID", userID)
  if err := cmd.Run(); err != nil {
    if ctx.Err() != nil {
      return nil, ctx.Err()
    }
    detail := strings.TrimSpace(stderr.String())
    if detail == "" {
      detail = err.Error()
    }
    pi.log.Warn("RAG bridge process failed", "system", system, "error", err, "stderr", detail)
    return nil, fmt.Errorf("%s process failed: %s", system, detail)
  }
  return stdout.Bytes(), nil
}

// HTTPInvoker calls a RAG back-end over HTTP instead of spawning a
// process. The service endpoint takes the same parameters as the
// bridge and answers with the same JSON payload.
type HTTPInvoker struct {
  log     *logger.Logger
  client  *http.Client
  baseURL string
  apiKey  string
}

func NewHTTPInvoker(log *logger.Logger, baseURL, apiKey string) (*HTTPInvoker, error) {
  if baseURL == "" {
    return nil, fmt.Errorf("missing RAG back-end base URL")
  }
  invokerLog := log.With("invoker", "HTTPInvoker")
  if apiKey == "" {
    invokerLog.Warn("RAG API key not set; calls might fail or be unauthorized")
  }
  return &HTTPInvoker{
    log:     invokerLog,
    client:  &http.Client{},
    baseURL: baseURL,
    apiKey:  apiKey,
  }, nil
}

func (hi *HTTPInvoker) Invoke(ctx context.Context, system, question, userID string) ([]byte, error) {
  if userID == "" {
    userID = "anonymous"
  }
  params := url.Values{}
  params.Set("mode", system)
  params.Set("question", question)
  params.Set("user_id", userID)
  reqURL := fmt.Sprintf("%s/api/rag?%s", hi.baseURL, params.Encode())

  req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
  if err != nil {
    hi.log.Warn("failed to build RAG back-end request", "error", err)
    return nil, err
  }
  if hi.apiKey != "" {
    req.Header.Set("Authorization", "Bearer "+hi.apiKey)
  }
  resp, err := hi.client.Do(req)
  if err != nil {
    if ctx.Err() != nil {
      return nil, ctx.Err()
    }
    hi.log.Warn("failed to call RAG back-end", "system", system, "error", err)
    return nil, err
  }
  defer resp.Body.Close()

  body, err := io.ReadAll(resp.Body)
  if err != nil {
    hi.log.Warn("failed to read RAG back-end response body", "error", err)
    return nil, err
  }
  if resp.StatusCode < 200 || resp.StatusCode > 299 {
    hi.log.Warn("RAG back-end responded with non-2xx", "statusCode", resp.StatusCode, "body", string(body))
    return nil, fmt.Errorf("%s back-end HTTP %d: %s", system, resp.StatusCode, string(body))
  }
  return body, nil
}
