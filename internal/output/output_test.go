package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestMessageStreams(t *testing.T) {
	u, out, errOut := newTestUI()
	u.Info("hello %s", "world")
	u.Success("done %d", 42)
	u.Warning("careful %s", "now")
	u.Error("failed %s", "badly")

	assert.Contains(t, out.String(), "hello world")
	assert.Contains(t, out.String(), "done 42")
	assert.NotContains(t, out.String(), "careful")
	assert.Contains(t, errOut.String(), "careful now")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would create %s", "file")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would create file")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would create %s", "file")
	assert.Empty(t, errOut.String())
}

func TestSectionAndField(t *testing.T) {
	u, out, _ := newTestUI()
	u.Section("Users (%d)", 2)
	u.Field("Score", 75)
	assert.Contains(t, out.String(), "Users (2)")
	assert.Contains(t, out.String(), "Score:    75\n")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "a b", Truncate("a\n  b", 10))
	// Each kana is two columns wide.
	got := Truncate("かきくけこさしすせそ", 9)
	assert.LessOrEqual(t, runewidth.StringWidth(got), 9)
	assert.True(t, strings.HasSuffix(got, "\u2026"))
}

func TestRatingColor(t *testing.T) {
	for _, r := range []string{"A", "B", "C", "D", "E"} {
		assert.Contains(t, RatingColor(r), r)
	}
	assert.Equal(t, "-", RatingColor(""))
	assert.Equal(t, "Z", RatingColor("Z"))
}

func TestScoreColor(t *testing.T) {
	assert.Contains(t, ScoreColor(90), "90")
	assert.Contains(t, ScoreColor(65.4), "65")
	assert.Contains(t, ScoreColor(30), "30")
}

func TestCheckbox(t *testing.T) {
	assert.Contains(t, Checkbox(true, true), "[x]")
	assert.Contains(t, Checkbox(false, true), "[!]")
	assert.Equal(t, "[ ]", Checkbox(false, false))
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"No.", "Location"})
	require.NotNil(t, table)

	table.Append([]string{"1", "headline"})
	table.Append([]string{"2", "footnote"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "headline"), "table output should contain row values")
	assert.True(t, strings.Contains(result, "footnote"), "table output should contain row values")
}
