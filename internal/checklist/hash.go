package checklist

import (
	"encoding/hex"
	"strconv"

	"github.com/zeebo/blake3"
)

// ContentHash identifies one exact report text.
type ContentHash [32]byte

// HashContent hashes report text by value.
func HashContent(reportText string) ContentHash {
	return blake3.Sum256([]byte(reportText))
}

func (h ContentHash) String() string {
	return hex.EncodeToString(h[:])
}

// Short is the prefix used inside row keys.
func (h ContentHash) Short() string {
	return hex.EncodeToString(h[:6])
}

// RowKey builds the checklist key for a sequence number within one report.
// occurrence disambiguates repeated sequence numbers and is 1 for the first.
func RowKey(h ContentHash, sequenceNumber string, occurrence int) string {
	key := h.Short() + "-row-" + sequenceNumber
	if occurrence > 1 {
		key += "." + strconv.Itoa(occurrence)
	}
	return key
}

// RowKeys returns one key per issue, in order. The same text always produces
// the same keys.
func RowKeys(h ContentHash, issues []IssueRecord) []string {
	keys := make([]string, len(issues))
	seen := make(map[string]int, len(issues))
	for i, issue := range issues {
		seen[issue.SequenceNumber]++
		keys[i] = RowKey(h, issue.SequenceNumber, seen[issue.SequenceNumber])
	}
	return keys
}
