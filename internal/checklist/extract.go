// Package checklist turns an AI compliance report into an acknowledgement
// checklist and decides when every flagged issue has been reviewed.
package checklist

import (
	"regexp"
	"strings"
)

// Column markers that identify the canonical issue table header. Both must
// appear on the same line.
const (
	headerNumberMarker   = "No."
	headerLocationMarker = "指摘箇所"
)

var sequencePattern = regexp.MustCompile(`^\d+$`)

// IssueRecord is one flagged row of the report's issue table.
type IssueRecord struct {
	SequenceNumber string `json:"no"`
	Location       string `json:"location"`
	Description    string `json:"description"`
}

// ExtractIssues scans report text for the first issue table and returns its
// data rows in source order. Text without a matching table yields an empty
// slice.
func ExtractIssues(reportText string) []IssueRecord {
	issues := make([]IssueRecord, 0)
	if reportText == "" {
		return issues
	}

	inside := false
	for _, raw := range strings.Split(reportText, "\n") {
		line := strings.TrimSpace(raw)

		if !inside {
			if isHeaderLine(line) {
				inside = true
			}
			continue
		}

		if !strings.HasPrefix(line, "|") {
			// Only the first table counts.
			break
		}
		if isSeparatorLine(line) || !strings.HasSuffix(line, "|") {
			continue
		}

		cells := splitRow(line)
		if len(cells) == 0 || !sequencePattern.MatchString(cells[0]) {
			continue
		}
		issues = append(issues, IssueRecord{
			SequenceNumber: cells[0],
			Location:       cellAt(cells, 1),
			Description:    cellAt(cells, 2),
		})
	}
	return issues
}

// CountIssues is the canonical AI issue count for a report.
func CountIssues(reportText string) int {
	return len(ExtractIssues(reportText))
}

func isHeaderLine(line string) bool {
	return strings.HasPrefix(line, "|") &&
		strings.Contains(line, headerNumberMarker) &&
		strings.Contains(line, headerLocationMarker)
}

// isSeparatorLine matches markdown table rules such as |---|:--:|.
func isSeparatorLine(line string) bool {
	if !strings.Contains(line, "-") {
		return false
	}
	for _, r := range line {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// splitRow drops the empty artifacts around the outer pipes and trims cells.
func splitRow(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) < 3 {
		return nil
	}
	cells := parts[1 : len(parts)-1]
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}
