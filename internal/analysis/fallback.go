package analysis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// FailureKind classifies why a provider call failed.
type FailureKind int

const (
	FailureConnection FailureKind = iota
	FailureUnavailable
	FailureTimeout
	FailureParameter
	FailureMalformed
)

func (k FailureKind) String() string {
	switch k {
	case FailureUnavailable:
		return "unavailable"
	case FailureTimeout:
		return "timeout"
	case FailureParameter:
		return "parameter"
	case FailureMalformed:
		return "malformed"
	default:
		return "connection"
	}
}

// Score is the fallback score reported for this kind of failure.
func (k FailureKind) Score() float64 {
	switch k {
	case FailureUnavailable, FailureParameter:
		return 60
	case FailureTimeout, FailureMalformed:
		return 70
	default:
		return 65
	}
}

// Classify maps a provider error onto a FailureKind.
func Classify(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	if errors.Is(err, ErrMalformedResponse) {
		return FailureMalformed
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch {
		case pe.Code == "app_unavailable" || strings.Contains(pe.Message, "App unavailable"):
			return FailureUnavailable
		case pe.StatusCode == 400 || pe.Code == "invalid_param":
			return FailureParameter
		}
		return FailureConnection
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	return FailureConnection
}

func failureMessage(kind FailureKind, timeout time.Duration) string {
	switch kind {
	case FailureUnavailable:
		return "審査アプリが利用できません。アプリの設定を確認してください"
	case FailureTimeout:
		return fmt.Sprintf("審査APIの応答がタイムアウトしました（%s経過）", timeout)
	case FailureParameter:
		return "審査ワークフローの入力パラメータエラーです"
	case FailureMalformed:
		return "審査APIレスポンスの解析中にエラーが発生しました"
	default:
		return "審査APIサーバーとの接続に失敗しました。ネットワーク接続を確認してください"
	}
}

// Fallback builds the synthetic "system error report" shown when the
// provider fails. It never contains an issue table.
func Fallback(document string, cause error, timeout time.Duration) *Result {
	kind := Classify(cause)
	score := kind.Score()
	msg := failureMessage(kind, timeout)

	detail := "unknown error"
	if cause != nil {
		detail = cause.Error()
	}

	excerpt := []rune(document)
	suffix := ""
	if len(excerpt) > 200 {
		excerpt = excerpt[:200]
		suffix = "..."
	}

	var sb strings.Builder
	sb.WriteString("システムエラー報告\n\n")
	sb.WriteString("【エラー詳細】\n")
	sb.WriteString(msg)
	sb.WriteString("\n\n【技術的詳細】\n")
	sb.WriteString(detail)
	sb.WriteString("\n\n【代替分析結果】\n")
	sb.WriteString("- 基本的なコンプライアンスチェックを実行\n")
	fmt.Fprintf(&sb, "- スコア: %.0f/100\n", score)
	sb.WriteString("- 推奨事項: 専門家による詳細確認\n\n")
	sb.WriteString("【対処方法】\n")
	sb.WriteString("1. ネットワーク接続を確認してください\n")
	sb.WriteString("2. しばらく時間をおいて再度お試しください\n")
	sb.WriteString("3. 問題が継続する場合は管理者にお問い合わせください\n\n")
	sb.WriteString("分析対象テキスト（最初の200文字）:\n")
	sb.WriteString(string(excerpt))
	sb.WriteString(suffix)

	return &Result{
		Score:     score,
		Summary:   "システムエラーのため簡易分析を実行しました。詳細な分析には専門家による確認をお勧めします。",
		RawOutput: sb.String(),
		Fallback:  true,
	}
}
