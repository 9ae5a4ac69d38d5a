// Package analysis runs ad copy through a compliance review provider and
// guarantees the caller always gets a report back.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// MaxOfficialURLs is how many reference URLs a provider accepts.
const MaxOfficialURLs = 5

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 15 * time.Minute

var (
	// ErrEmptyDocument is returned when there is no copy to review.
	ErrEmptyDocument = errors.New("document text is required")
	// ErrMalformedResponse wraps provider output that could not be parsed.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Result is a provider's verdict on one document.
type Result struct {
	Score     float64 `json:"score"`
	Summary   string  `json:"summary"`
	RawOutput string  `json:"raw_output"`
	// Fallback marks a synthetic report produced after the provider failed.
	Fallback bool   `json:"fallback"`
	Provider string `json:"provider"`
}

// Provider performs the actual review.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, document string, officialURLs []string) (*Result, error)
}

// ProviderError is an error response from a remote review service.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error: %d %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error: %d - %s", e.StatusCode, e.Message)
}

// Analyzer wraps a Provider with input cleanup, a deadline and fallback reports.
type Analyzer struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAnalyzer creates an analyzer. A nil provider produces test-mode reports.
func NewAnalyzer(p Provider, timeout time.Duration) *Analyzer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Analyzer{provider: p, timeout: timeout, logger: slog.Default()}
}

// ProviderName returns the configured provider, or "mock".
func (a *Analyzer) ProviderName() string {
	if a.provider == nil {
		return "mock"
	}
	return a.provider.Name()
}

// Analyze reviews document. Only ErrEmptyDocument is returned as an error;
// provider failures yield a fallback report with Fallback set.
func (a *Analyzer) Analyze(ctx context.Context, document string, officialURLs []string) (*Result, error) {
	if strings.TrimSpace(document) == "" {
		return nil, ErrEmptyDocument
	}
	urls := CleanURLs(officialURLs)

	if a.provider == nil {
		return mockResult(), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := a.provider.Analyze(callCtx, document, urls)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		a.logger.Warn("analysis failed, using fallback report", "provider", a.provider.Name(), "error", err)
		fb := Fallback(document, err, a.timeout)
		fb.Provider = a.provider.Name()
		return fb, nil
	}
	if res.Provider == "" {
		res.Provider = a.provider.Name()
	}
	return res, nil
}

// CleanURLs trims, drops blanks and keeps at most MaxOfficialURLs entries.
func CleanURLs(urls []string) []string {
	out := make([]string, 0, MaxOfficialURLs)
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		out = append(out, u)
		if len(out) == MaxOfficialURLs {
			break
		}
	}
	return out
}

func mockResult() *Result {
	return &Result{
		Score:    75,
		Summary:  "テストモードでの分析結果です。実際の分析を行うにはプロバイダーを設定してください。",
		Provider: "mock",
		RawOutput: `# テストモード

審査プロバイダーが設定されていないため、テストモードで実行しています。

- スコア: 75/100
- 実際の分析を行うには provider と API キーを設定してください`,
	}
}
