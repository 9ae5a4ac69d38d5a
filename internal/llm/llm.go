// Package llm reviews ad copy with Claude through the Anthropic API.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/adreview/internal/analysis"
)

// Verdict is the JSON line Claude appends after its markdown report.
type Verdict struct {
	Score   float64 `json:"score"`
	Summary string  `json:"summary"`
}

// Client wraps the Anthropic API. It implements analysis.Provider.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

func (c *Client) Name() string { return "anthropic" }

// buildPrompt constructs the system and user prompts for a compliance review.
func buildPrompt(document string, officialURLs []string) (system string, user string) {
	system = `You review Japanese advertising and promotional copy for compliance with the Act against Unjustifiable Premiums and Misleading Representations and the Pharmaceutical and Medical Device Act.

Write the report in Japanese markdown with:
1. A short overall assessment.
2. Exactly one issue table with this header, one row per problem, numbered from 1:
| No. | 指摘箇所 | 指摘内容 |
|-----|----------|----------|
   "指摘箇所" quotes or names the offending part of the copy; "指摘内容" explains the problem and suggests a fix.
   If there are no problems, omit the table entirely.
3. As the very last line, a single JSON object: {"score": <0-100>, "summary": "<one sentence>"}

Rules:
- Use ASCII digits in the No. column
- Do not wrap the report or the JSON in code fences
- Do not add any other tables`

	var sb strings.Builder
	if len(officialURLs) > 0 {
		sb.WriteString("Official product pages for reference:\n")
		for _, u := range officialURLs {
			sb.WriteString("- ")
			sb.WriteString(u)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Review this copy:\n\n")
	sb.WriteString(document)
	user = sb.String()
	return
}

// Analyze sends the copy to Claude and returns the markdown report.
func (c *Client) Analyze(ctx context.Context, document string, officialURLs []string) (*analysis.Result, error) {
	systemPrompt, userPrompt := buildPrompt(document, officialURLs)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 8192,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return nil, fmt.Errorf("%w: no text content in API response", analysis.ErrMalformedResponse)
	}

	return parseReport(text)
}

// parseReport splits the trailing verdict line off the report text.
func parseReport(text string) (*analysis.Result, error) {
	text = stripFencing(strings.TrimSpace(text))

	idx := strings.LastIndex(text, "\n")
	last := text[idx+1:]
	body := ""
	if idx >= 0 {
		body = text[:idx]
	}

	var v Verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(last)), &v); err != nil {
		return nil, fmt.Errorf("%w: parse verdict line: %v\nraw response: %s", analysis.ErrMalformedResponse, err, last)
	}

	return &analysis.Result{
		Score:     v.Score,
		Summary:   v.Summary,
		RawOutput: strings.TrimSpace(body),
	}, nil
}

// stripFencing removes a markdown code fence wrapping the whole response.
func stripFencing(text string) string {
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
