package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/adreview/internal/checklist"
)

const report = "# 審査結果\n\n| No. | 指摘箇所 | 指摘内容 |\n|---|---|---|\n| 1 | 見出し | 保証表現 |\n| 2 | 本文 | 効能効果 |\n"

func TestHTML(t *testing.T) {
	out, err := HTML(report)
	require.NoError(t, err)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>見出し</td>")
}

func TestHTML_EscapesRawHTML(t *testing.T) {
	out, err := HTML("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestCountTables(t *testing.T) {
	assert.Equal(t, 0, CountTables("no tables"))
	assert.Equal(t, 1, CountTables(report))
	assert.Equal(t, 2, CountTables(report+"\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"))
}

func TestRender(t *testing.T) {
	doc, err := Render(report, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Total)
	assert.Equal(t, 1, doc.Tables)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "2", doc.Rows[1].SequenceNumber)
	assert.False(t, doc.Rows[0].Acknowledged)
}

func TestRows_KeysMatchChecklist(t *testing.T) {
	c := checklist.New()
	c.Load(report)
	live := c.Rows()
	static := Rows(report)
	require.Len(t, static, len(live))
	for i := range live {
		assert.Equal(t, live[i].Key, static[i].Key)
	}
}
