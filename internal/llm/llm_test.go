package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/adreview/internal/analysis"
	"github.com/joescharf/adreview/internal/checklist"
)

func TestBuildPrompt(t *testing.T) {
	t.Run("with urls", func(t *testing.T) {
		system, user := buildPrompt("必ず痩せるサプリ", []string{"https://a.example", "https://b.example"})

		assert.Contains(t, system, "| No. | 指摘箇所 | 指摘内容 |")
		assert.Contains(t, system, `"score"`)
		assert.Contains(t, system, `"summary"`)

		assert.Contains(t, user, "- https://a.example\n- https://b.example")
		assert.Contains(t, user, "必ず痩せるサプリ")
	})

	t.Run("without urls", func(t *testing.T) {
		_, user := buildPrompt("some content", nil)
		assert.NotContains(t, user, "Official product pages")
		assert.Contains(t, user, "some content")
	})
}

func TestBuildPromptContent(t *testing.T) {
	content := strings.Repeat("x", 10000)
	_, user := buildPrompt(content, nil)
	assert.Contains(t, user, content)
}

func TestParseReport(t *testing.T) {
	t.Run("report with verdict", func(t *testing.T) {
		text := "総評: 要修正\n\n| No. | 指摘箇所 | 指摘内容 |\n|---|---|---|\n| 1 | 見出し | 効果の保証 |\n| 2 | 本文 | 医薬品的表現 |\n{\"score\": 55, \"summary\": \"2件の指摘\"}"
		res, err := parseReport(text)
		require.NoError(t, err)
		assert.Equal(t, 55.0, res.Score)
		assert.Equal(t, "2件の指摘", res.Summary)
		assert.NotContains(t, res.RawOutput, "score")
		assert.Equal(t, 2, checklist.CountIssues(res.RawOutput))
	})

	t.Run("fenced response", func(t *testing.T) {
		text := "```markdown\n問題なし\n{\"score\": 95, \"summary\": \"ok\"}\n```"
		res, err := parseReport(text)
		require.NoError(t, err)
		assert.Equal(t, 95.0, res.Score)
		assert.Equal(t, "問題なし", res.RawOutput)
	})

	t.Run("missing verdict", func(t *testing.T) {
		_, err := parseReport("only prose\nno json here")
		assert.ErrorIs(t, err, analysis.ErrMalformedResponse)
	})
}
