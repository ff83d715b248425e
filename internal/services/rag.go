package services

import (
  "context"
  "encoding/json"
  "strings"
  "time"

  "github.com/coped-org/coped-backend/internal/apperr"
  "github.com/coped-org/coped-backend/internal/logger"
  "github.com/coped-org/coped-backend/internal/normalization"
  "github.com/coped-org/coped-backend/internal/types"
)

const (
  RagModeAuto = "auto"

  QuestionLegal   = "legal"
  QuestionGeneral = "general"

  // Fixed per-system constants. These are configuration values the
  // back-ends report by convention, not measured quality.
  NativeAccuracy    = 96.8
  LangChainAccuracy = 63.6
  NativeModel       = "gemini-2.5-flash"
  LangChainModel    = "gemini-1.5-flash"

  DefaultRagTimeout = 30 * time.Second
)

// Questions touching any of these terms route to the native back-end
// under auto mode. Matching is case-insensitive substring.
var legalKeywords = []string{
  "pasal",
  "undang",
  "konstitusi",
  "hukum",
  "peraturan",
  "uud",
  "ayat",
}

type RagResult struct {
  Answer       string   `json:"answer"`
  System       string   `json:"system"`
  Accuracy     float64  `json:"accuracy"`
  ResponseTime float64  `json:"responseTime"`
  Sources      []string `json:"sources"`
  GeminiModel  string   `json:"geminiModel"`
  Cached       bool     `json:"cached"`
}

type ComparisonResult struct {
  Question       string     `json:"question"`
  Native         *RagResult `json:"native"`
  LangChain      *RagResult `json:"langchain"`
  Recommendation string     `json:"recommendation"`
}

type RagService interface {
  ClassifyQuestion(question string) string
  SelectSystem(question, mode string) (string, error)
  Ask(ctx context.Context, question, mode, userID string) (*RagResult, error)
  Compare(ctx context.Context, question, userID string) (*ComparisonResult, error)
}

type ragService struct {
  log     *logger.Logger
  invoker RagInvoker
  cache   *RagCache
  timeout time.Duration
}

// NewRagService builds the dispatcher. cache may be nil, in which case
// every question goes to a back-end.
func NewRagService(log *logger.Logger, invoker RagInvoker, cache *RagCache, timeout time.Duration) RagService {
  if timeout <= 0 {
    timeout = DefaultRagTimeout
  }
  return &ragService{
    log:     log.With("service", "RagService"),
    invoker: invoker,
    cache:   cache,
    timeout: timeout,
  }
}

func (rs *ragService) ClassifyQuestion(question string) string {
  lowered := strings.ToLower(question)
  for _, keyword := range legalKeywords {
    if strings.Contains(lowered, keyword) {
      return QuestionLegal
    }
  }
  return QuestionGeneral
}

// SelectSystem resolves which back-end answers the question. Explicit
// modes bypass classification.
func (rs *ragService) SelectSystem(question, mode string) (string, error) {
  switch mode {
  case types.RagSystemNative, types.RagSystemLangChain:
    return mode, nil
  case RagModeAuto, "":
    if rs.ClassifyQuestion(question) == QuestionLegal {
      return types.RagSystemNative, nil
    }
    return types.RagSystemLangChain, nil
  default:
    return "", apperr.NewValidation(
      "Invalid ragSystem",
      "ragSystem: must be one of 'auto', 'native', 'langchain'",
    )
  }
}

func (rs *ragService) Ask(ctx context.Context, question, mode, userID string) (*RagResult, error) {
  q := normalization.ParseInputString(question)
  if q == "" {
    rs.log.Warn("Empty question given to Ask, Cannot proceed. Returning error.")
    return nil, apperr.NewValidation("Question is required", "question: Question is required")
  }
  system, err := rs.SelectSystem(q, mode)
  if err != nil {
    return nil, err
  }
  rs.log.Debug("Dispatching question", "system", system, "mode", mode)

  if rs.cache != nil {
    if cached, ok := rs.cache.Get(ctx, system, q); ok {
      rs.log.Info("Answer served from cache", "system", system)
      cached.Cached = true
      return cached, nil
    }
  }

  result, err := rs.callBackend(ctx, system, q, userID)
  if err != nil {
    return nil, err
  }
  if rs.cache != nil {
    rs.cache.Set(ctx, system, q, result)
  }
  return result, nil
}

func (rs *ragService) Compare(ctx context.Context, question, userID string) (*ComparisonResult, error) {
  q := normalization.ParseInputString(question)
  if q == "" {
    return nil, apperr.NewValidation("Question is required", "question: Question is required")
  }

  type outcome struct {
    res *RagResult
    err error
  }
  nativeCh := make(chan outcome, 1)
  langchainCh := make(chan outcome, 1)
  go func() {
    res, err := rs.callBackend(ctx, types.RagSystemNative, q, userID)
    nativeCh <- outcome{res: res, err: err}
  }()
  go func() {
    res, err := rs.callBackend(ctx, types.RagSystemLangChain, q, userID)
    langchainCh <- outcome{res: res, err: err}
  }()
  native := <-nativeCh
  langchain := <-langchainCh

  if native.err != nil {
    rs.log.Warn("Comparison failed on native side", "error", native.err)
    return nil, apperr.Wrap(apperr.ComparisonFailed, "Comparison failed: "+apperr.UserMessage(native.err), native.err)
  }
  if langchain.err != nil {
    rs.log.Warn("Comparison failed on langchain side", "error", langchain.err)
    return nil, apperr.Wrap(apperr.ComparisonFailed, "Comparison failed: "+apperr.UserMessage(langchain.err), langchain.err)
  }

  recommendation := types.RagSystemLangChain
  if native.res.Accuracy > langchain.res.Accuracy {
    recommendation = types.RagSystemNative
  }
  return &ComparisonResult{
    Question:       q,
    Native:         native.res,
    LangChain:      langchain.res,
    Recommendation: recommendation,
  }, nil
}

// callBackend runs one bounded back-end invocation and normalizes the
// result shape.
func (rs *ragService) callBackend(ctx context.Context, system, question, userID string) (*RagResult, error) {
  callCtx, cancel := context.WithTimeout(ctx, rs.timeout)
  defer cancel()

  started := time.Now()
  out, err := rs.invoker.Invoke(callCtx, system, question, userID)
  elapsed := float64(time.Since(started).Milliseconds())
  if err != nil {
    if callCtx.Err() == context.DeadlineExceeded {
      rs.log.Warn("RAG back-end timed out", "system", system, "timeout", rs.timeout)
      return nil, apperr.Wrap(apperr.Timeout, "Request timeout", err)
    }
    return nil, apperr.Wrap(apperr.BackendFailure, err.Error(), err)
  }

  result := &RagResult{
    System:  system,
    Sources: []string{},
  }
  switch system {
  case types.RagSystemNative:
    result.Accuracy = NativeAccuracy
    result.GeminiModel = NativeModel
  case types.RagSystemLangChain:
    result.Accuracy = LangChainAccuracy
    result.GeminiModel = LangChainModel
  }

  raw := strings.TrimSpace(string(out))
  var payload RagPayload
  if jErr := json.Unmarshal([]byte(raw), &payload); jErr != nil || payload.Answer == "" {
    // Lenient degradation: an unparsable payload is still an answer,
    // just without metadata.
    rs.log.Debug("RAG back-end output not parsable as JSON, using raw output as answer", "system", system)
    result.Answer = raw
    result.ResponseTime = elapsed
    return result, nil
  }
  result.Answer = payload.Answer
  if payload.ResponseTime > 0 {
    result.ResponseTime = payload.ResponseTime
  } else {
    result.ResponseTime = elapsed
  }
  if payload.Sources != nil {
    result.Sources = payload.Sources
  }
  return result, nil
}
