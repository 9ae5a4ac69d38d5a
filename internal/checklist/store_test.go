package checklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RegisterKeyIdempotent(t *testing.T) {
	s := NewStore()
	s.RegisterKey("k1")
	s.RegisterKey("k1")
	assert.Equal(t, 1, s.RegisteredCount())
}

func TestStore_AcknowledgedCountRequiresRegistration(t *testing.T) {
	s := NewStore()
	s.SetAcknowledged("stale", true)
	assert.Equal(t, 0, s.AcknowledgedCount(), "unregistered keys never count")
	assert.True(t, s.Acknowledged("stale"), "toggle is still stored")

	s.RegisterKey("stale")
	assert.Equal(t, 1, s.AcknowledgedCount())

	s.SetAcknowledged("stale", false)
	assert.Equal(t, 0, s.AcknowledgedCount())
}

func TestStore_ResetClearsEverything(t *testing.T) {
	s := NewStore()
	s.RegisterKey("a")
	s.RegisterKey("b")
	s.SetAcknowledged("a", true)
	s.SetAcknowledged("b", true)
	require.Equal(t, 2, s.AcknowledgedCount())

	s.Reset()
	assert.Equal(t, 0, s.AcknowledgedCount())
	assert.Equal(t, 0, s.RegisteredCount())

	s.RegisterKey("a")
	s.RegisterKey("b")
	assert.False(t, s.Acknowledged("a"))
	assert.Equal(t, 0, s.AcknowledgedCount())
}

func TestStore_BindResetsOnContentChange(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Bind("report one"), "first bind is not a change")
	s.RegisterKey("x")
	s.SetAcknowledged("x", true)

	assert.False(t, s.Bind("report one"), "same text keeps state")
	assert.Equal(t, 1, s.AcknowledgedCount())

	assert.True(t, s.Bind("report two"))
	assert.Equal(t, 0, s.AcknowledgedCount())
	assert.Equal(t, 0, s.RegisteredCount())
}

func TestRowKeys_StableAndContentScoped(t *testing.T) {
	issues := ExtractIssues(threeIssueReport)
	h := HashContent(threeIssueReport)

	first := RowKeys(h, issues)
	second := RowKeys(HashContent(threeIssueReport), ExtractIssues(threeIssueReport))
	assert.Equal(t, first, second)

	other := RowKeys(HashContent(threeIssueReport+"\n"), issues)
	assert.NotEqual(t, first[0], other[0])
}

func TestRowKeys_DuplicateSequenceNumbers(t *testing.T) {
	h := HashContent("dup")
	keys := RowKeys(h, []IssueRecord{{SequenceNumber: "1"}, {SequenceNumber: "1"}, {SequenceNumber: "2"}})
	assert.Len(t, keys, 3)
	assert.NotEqual(t, keys[0], keys[1])
	assert.Equal(t, RowKey(h, "1", 1), keys[0])
	assert.Equal(t, RowKey(h, "1", 2), keys[1])
}
