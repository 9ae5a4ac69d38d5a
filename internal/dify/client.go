// Package dify calls a Dify compliance-review workflow.
package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/joescharf/adreview/internal/analysis"
)

// DefaultScore is used when the workflow output carries no numeric score.
const DefaultScore = 75

// Client runs the workflow over HTTP. It implements analysis.Provider.
type Client struct {
	baseURL string
	apiKey  string
	user    string
	http    *http.Client
}

// NewClient creates a Dify client for the API rooted at baseURL
// (for example https://api.dify.ai/v1).
func NewClient(baseURL, apiKey, user string) *Client {
	if user == "" {
		user = "adreview"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		user:    user,
		// The analyzer owns the deadline through the request context.
		http: &http.Client{Timeout: 0},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) Name() string { return "dify" }

type runRequest struct {
	Inputs       map[string]string `json:"inputs"`
	ResponseMode string            `json:"response_mode"`
	User         string            `json:"user"`
}

// BuildInputs maps the document and up to five URLs onto workflow inputs.
// Unused URL slots are sent as empty strings.
func BuildInputs(document string, officialURLs []string) map[string]string {
	inputs := map[string]string{"documents": document}
	for i := 0; i < analysis.MaxOfficialURLs; i++ {
		key := fmt.Sprintf("official_url%d", i+1)
		if i < len(officialURLs) {
			inputs[key] = officialURLs[i]
		} else {
			inputs[key] = ""
		}
	}
	return inputs
}

// Analyze runs the workflow in blocking mode.
func (c *Client) Analyze(ctx context.Context, document string, officialURLs []string) (*analysis.Result, error) {
	body, err := json.Marshal(runRequest{
		Inputs:       BuildInputs(document, officialURLs),
		ResponseMode: "blocking",
		User:         c.user,
	})
	if err != nil {
		return nil, fmt.Errorf("encode workflow request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/workflows/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create workflow request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workflow request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read workflow response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(resp.StatusCode, data)
	}

	slog.Debug("dify workflow finished", "elapsed", time.Since(start), "bytes", len(data))
	return ParseWorkflowResponse(data)
}

func parseError(status int, body []byte) error {
	pe := &analysis.ProviderError{StatusCode: status}
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		pe.Code = parsed.Get("code").String()
		pe.Message = parsed.Get("message").String()
	}
	if pe.Message == "" {
		pe.Message = strings.TrimSpace(string(body))
	}
	if pe.Message == "" {
		pe.Message = http.StatusText(status)
	}
	return pe
}

// ParseWorkflowResponse extracts score, summary and report text from a
// blocking workflow response. data.outputs may be an object or a JSON
// encoded string.
func ParseWorkflowResponse(body []byte) (*analysis.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not JSON", analysis.ErrMalformedResponse)
	}
	root := gjson.ParseBytes(body)

	if root.Get("data.status").String() == "failed" {
		return nil, &analysis.ProviderError{
			StatusCode: http.StatusOK,
			Code:       "workflow_failed",
			Message:    root.Get("data.error").String(),
		}
	}

	outputs := root.Get("data.outputs")
	if !outputs.Exists() {
		if answer := root.Get("answer"); answer.Type == gjson.String {
			return parseAnswer(answer.String()), nil
		}
		return nil, fmt.Errorf("%w: no workflow outputs", analysis.ErrMalformedResponse)
	}

	if outputs.Type == gjson.String {
		text := outputs.String()
		if !gjson.Valid(text) || !gjson.Parse(text).IsObject() {
			return &analysis.Result{Score: DefaultScore, RawOutput: text, Summary: defaultSummary}, nil
		}
		outputs = gjson.Parse(text)
	}

	res := &analysis.Result{
		Score:   DefaultScore,
		Summary: defaultSummary,
	}
	if score := outputs.Get("score"); score.Type == gjson.Number {
		res.Score = score.Float()
	}
	if summary := outputs.Get("summary").String(); summary != "" {
		res.Summary = summary
	}

	switch {
	case outputs.Get("answer").Type == gjson.String:
		res.RawOutput = outputs.Get("answer").String()
	case outputs.Get("text").Type == gjson.String:
		res.RawOutput = outputs.Get("text").String()
	default:
		res.RawOutput = strings.TrimSpace(string(pretty.Pretty([]byte(outputs.Raw))))
	}
	return res, nil
}

const defaultSummary = "審査ワークフローによる分析が完了しました。"

// parseAnswer handles chat-style responses whose answer text embeds a JSON
// object somewhere in the prose.
func parseAnswer(answer string) *analysis.Result {
	res := &analysis.Result{Score: DefaultScore, Summary: defaultSummary, RawOutput: answer}
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end <= start {
		return res
	}
	obj := answer[start : end+1]
	if !gjson.Valid(obj) {
		return res
	}
	parsed := gjson.Parse(obj)
	if score := parsed.Get("score"); score.Type == gjson.Number {
		res.Score = score.Float()
	}
	if summary := parsed.Get("summary").String(); summary != "" {
		res.Summary = summary
	}
	return res
}
