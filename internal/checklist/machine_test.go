package checklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecklist_FreshRejectsActions(t *testing.T) {
	c := New()
	assert.Equal(t, StateFresh, c.State())

	_, err := c.Complete()
	assert.ErrorIs(t, err, ErrNoReport)
	assert.ErrorIs(t, c.Toggle("k", true), ErrNoReport)
}

func TestChecklist_ScenarioA_PartialAcknowledgement(t *testing.T) {
	c := New()
	c.Load(threeIssueReport)
	require.Equal(t, StatePopulated, c.State())
	require.Equal(t, 3, c.Total())

	require.NoError(t, c.ToggleSequence("1", true))
	require.NoError(t, c.ToggleSequence("2", true))

	outcome, err := c.Complete()
	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: OutcomeIncomplete, Acknowledged: 2, Total: 3}, outcome)
	assert.Equal(t, StateValidationFailed, c.State())

	rows := c.Rows()
	assert.False(t, rows[0].Flagged)
	assert.False(t, rows[1].Flagged)
	assert.True(t, rows[2].Flagged)
}

func TestChecklist_ZeroAcknowledgedIsIncomplete(t *testing.T) {
	c := New()
	c.Load(threeIssueReport)
	outcome, err := c.Complete()
	require.NoError(t, err)
	assert.Equal(t, OutcomeIncomplete, outcome.Kind)
	assert.Equal(t, 0, outcome.Acknowledged)
	assert.Equal(t, StateValidationFailed, c.State())
}

func TestChecklist_HighlightPersistsAcrossToggles(t *testing.T) {
	c := New()
	c.Load(threeIssueReport)
	_, err := c.Complete()
	require.NoError(t, err)
	require.True(t, c.Highlighted())

	require.NoError(t, c.ToggleSequence("1", true))
	assert.Equal(t, StatePopulated, c.State())
	assert.True(t, c.Highlighted(), "highlight clears only on the next completion attempt")

	require.NoError(t, c.ToggleSequence("2", true))
	require.NoError(t, c.ToggleSequence("3", true))
	outcome, err := c.Complete()
	require.NoError(t, err)
	assert.Equal(t, OutcomeComplete, outcome.Kind)
	assert.False(t, c.Highlighted())
}

func TestChecklist_ScenarioB_CompleteFiresCallback(t *testing.T) {
	c := New()
	var fired []Outcome
	c.OnComplete(func(o Outcome) { fired = append(fired, o) })

	c.Load(threeIssueReport)
	require.NoError(t, c.AcknowledgeAll())

	outcome, err := c.Complete()
	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: OutcomeComplete, Acknowledged: 3, Total: 3}, outcome)
	assert.Equal(t, StateComplete, c.State())
	require.Len(t, fired, 1)

	// Terminal: toggles are rejected and repeat completion does not refire.
	assert.ErrorIs(t, c.ToggleSequence("1", false), ErrChecklistComplete)
	again, err := c.Complete()
	require.NoError(t, err)
	assert.Equal(t, outcome, again)
	assert.Len(t, fired, 1)
}

func TestChecklist_EmptyReportIsInformational(t *testing.T) {
	c := New()
	fired := false
	c.OnComplete(func(Outcome) { fired = true })
	c.Load("# Report\nNo table.")

	outcome, err := c.Complete()
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmpty, outcome.Kind)
	assert.Equal(t, StatePopulated, c.State())
	assert.False(t, fired)
}

func TestChecklist_ReloadSameContentKeepsState(t *testing.T) {
	c := New()
	c.Load(threeIssueReport)
	require.NoError(t, c.ToggleSequence("1", true))

	c.Load(threeIssueReport)
	assert.Equal(t, 1, c.AcknowledgedCount())
	assert.True(t, c.Rows()[0].Acknowledged)
}

func TestChecklist_ContentChangeResets(t *testing.T) {
	second := "| No. | 指摘箇所 | 指摘内容 |\n|---|---|---|\n| 1 | 別の箇所 | 別の指摘 |\n"

	c := New()
	c.Load(threeIssueReport)
	require.NoError(t, c.ToggleSequence("1", true))
	require.Equal(t, 1, c.AcknowledgedCount())

	c.Load(second)
	assert.Equal(t, StatePopulated, c.State())
	assert.Equal(t, 0, c.AcknowledgedCount())
	assert.False(t, c.Rows()[0].Acknowledged, "row 1 of the old report must not carry over")

	outcome, err := c.Complete()
	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: OutcomeIncomplete, Acknowledged: 0, Total: 1}, outcome)
}

func TestChecklist_ContentChangeAfterComplete(t *testing.T) {
	c := New()
	c.Load(threeIssueReport)
	require.NoError(t, c.AcknowledgeAll())
	_, err := c.Complete()
	require.NoError(t, err)
	require.Equal(t, StateComplete, c.State())

	c.Load(threeIssueReport + "\n追記")
	assert.Equal(t, StatePopulated, c.State())
	assert.Equal(t, 0, c.AcknowledgedCount())
}

func TestChecklist_ToggleUnknownKey(t *testing.T) {
	c := New()
	c.Load(threeIssueReport)
	assert.ErrorIs(t, c.Toggle("nope", true), ErrUnknownKey)
	assert.ErrorIs(t, c.ToggleSequence("99", true), ErrUnknownKey)
}

func TestChecklist_Clear(t *testing.T) {
	c := New()
	c.Load(threeIssueReport)
	require.NoError(t, c.AcknowledgeAll())
	c.Clear()
	assert.Equal(t, StateFresh, c.State())
	assert.Equal(t, 0, c.Total())

	c.Load(threeIssueReport)
	assert.Equal(t, 0, c.AcknowledgedCount())
}

func TestStateText(t *testing.T) {
	for _, want := range []State{StateFresh, StatePopulated, StateValidationFailed, StateComplete} {
		text, err := want.MarshalText()
		require.NoError(t, err)
		var got State
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, want, got)
	}
	var s State
	assert.Error(t, s.UnmarshalText([]byte("archived")))
}
