// Package render turns AI report markdown into HTML for the dashboard.
package render

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/joescharf/adreview/internal/checklist"
)

var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			// Reports are written line by line; keep their breaks.
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return markdownInstance
}

// HTML renders report markdown. Raw HTML in the source is escaped.
func HTML(raw string) (string, error) {
	var buf bytes.Buffer
	if err := markdown().Convert([]byte(raw), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// CountTables returns the number of GFM tables in the report.
func CountTables(raw string) int {
	source := []byte(raw)
	doc := markdown().Parser().Parse(text.NewReader(source))

	n := 0
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := node.(*extast.Table); ok {
			n++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return n
}

// Document is a rendered report plus its checklist rows.
type Document struct {
	HTML  string          `json:"html"`
	Rows  []checklist.Row `json:"rows"`
	Total int             `json:"total"`
	// Tables counts every table in the report; only the first issue table
	// feeds the checklist.
	Tables int `json:"tables"`
}

// Render builds a Document. When rows is nil they are derived from the
// report with nothing acknowledged.
func Render(raw string, rows []checklist.Row) (*Document, error) {
	body, err := HTML(raw)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = Rows(raw)
	}
	return &Document{
		HTML:   body,
		Rows:   rows,
		Total:  len(rows),
		Tables: CountTables(raw),
	}, nil
}

// Rows is the read-only checklist view of a report.
func Rows(raw string) []checklist.Row {
	issues := checklist.ExtractIssues(raw)
	keys := checklist.RowKeys(checklist.HashContent(raw), issues)
	rows := make([]checklist.Row, len(issues))
	for i, issue := range issues {
		rows[i] = checklist.Row{IssueRecord: issue, Key: keys[i]}
	}
	return rows
}
