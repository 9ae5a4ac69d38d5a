package checklist

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

const threeIssueReport = `# 審査結果

総合評価: 要修正

| No. | 指摘箇所 | 指摘内容 |
|-----|----------|----------|
| 1 | 見出し | 「必ず痩せる」は効果の保証表現です |
| 2 | 本文2行目 | 医薬品的な効能効果の標ぼう |
| 3 | 注釈 | 打消し表示が小さすぎます |

以上です。`

func TestExtractIssues(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []IssueRecord
	}{
		{
			name: "empty input",
			text: "",
			want: []IssueRecord{},
		},
		{
			name: "no table",
			text: "# Report\n\nNothing to flag.",
			want: []IssueRecord{},
		},
		{
			name: "three rows in order",
			text: threeIssueReport,
			want: []IssueRecord{
				{SequenceNumber: "1", Location: "見出し", Description: "「必ず痩せる」は効果の保証表現です"},
				{SequenceNumber: "2", Location: "本文2行目", Description: "医薬品的な効能効果の標ぼう"},
				{SequenceNumber: "3", Location: "注釈", Description: "打消し表示が小さすぎます"},
			},
		},
		{
			name: "header with only No. does not trigger",
			text: "| No. | 項目 | 内容 |\n|---|---|---|\n| 1 | a | b |",
			want: []IssueRecord{},
		},
		{
			name: "header with only location marker does not trigger",
			text: "| # | 指摘箇所 | 内容 |\n|---|---|---|\n| 1 | a | b |",
			want: []IssueRecord{},
		},
		{
			name: "non-digit first cell is skipped without ending the table",
			text: "| No. | 指摘箇所 | 指摘内容 |\n|---|---|---|\n| 1 | a | b |\n| 補足 | c | d |\n| 2 | e | f |",
			want: []IssueRecord{
				{SequenceNumber: "1", Location: "a", Description: "b"},
				{SequenceNumber: "2", Location: "e", Description: "f"},
			},
		},
		{
			name: "missing cells default to empty",
			text: "| No. | 指摘箇所 | 指摘内容 |\n| :-: | --- | --- |\n| 7 |",
			want: []IssueRecord{
				{SequenceNumber: "7", Location: "", Description: ""},
			},
		},
		{
			name: "short row keeps location only",
			text: "| No. | 指摘箇所 | 指摘内容 |\n| --- | --- | --- |\n| 7 | 見出し |",
			want: []IssueRecord{
				{SequenceNumber: "7", Location: "見出し", Description: ""},
			},
		},
		{
			name: "non-dense numbering is preserved verbatim",
			text: "| No. | 指摘箇所 | 指摘内容 |\n|---|---|---|\n| 10 | a | b |\n| 03 | c | d |",
			want: []IssueRecord{
				{SequenceNumber: "10", Location: "a", Description: "b"},
				{SequenceNumber: "03", Location: "c", Description: "d"},
			},
		},
		{
			name: "only the first table counts",
			text: "| No. | 指摘箇所 | 指摘内容 |\n|---|---|---|\n| 1 | a | b |\n\n| No. | 指摘箇所 | 指摘内容 |\n|---|---|---|\n| 1 | c | d |\n| 2 | e | f |",
			want: []IssueRecord{
				{SequenceNumber: "1", Location: "a", Description: "b"},
			},
		},
		{
			name: "indented table lines are trimmed",
			text: "  | No. | 指摘箇所 | 指摘内容 |\n  |---|---|---|\n  | 1 | a | b |  \n",
			want: []IssueRecord{
				{SequenceNumber: "1", Location: "a", Description: "b"},
			},
		},
		{
			name: "full-width digits are not sequence numbers",
			text: "| No. | 指摘箇所 | 指摘内容 |\n|---|---|---|\n| １ | a | b |",
			want: []IssueRecord{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractIssues(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractIssues() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCountIssues_MatchesExtraction(t *testing.T) {
	assert.Equal(t, 3, CountIssues(threeIssueReport))
	assert.Equal(t, 0, CountIssues(""))
	assert.Equal(t, len(ExtractIssues(threeIssueReport)), CountIssues(threeIssueReport))
}

func TestIsSeparatorLine(t *testing.T) {
	assert.True(t, isSeparatorLine("|---|---|"))
	assert.True(t, isSeparatorLine("| :-- | --: |"))
	assert.False(t, isSeparatorLine("| | |"))
	assert.False(t, isSeparatorLine("| 1 | - |"))
}
