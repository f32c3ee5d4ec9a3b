package main

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
)

// PromptGuard talks to an llm-guard API (github.com/protectai/llm-guard).
// A guard without a URL lets everything through.
type PromptGuard struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type guardScanRequest struct {
	Prompt string `json:"prompt,omitempty"`
	Output string `json:"output,omitempty"`
}

// GuardScanResponse is the response of /scan/prompt and /scan/output
type GuardScanResponse struct {
	IsValid         bool                     `json:"is_valid"`
	SanitizedPrompt string                   `json:"sanitized_prompt,omitempty"`
	SanitizedOutput string                   `json:"sanitized_output,omitempty"`
	Results         map[string]ScannerResult `json:"results"`
}

// ScannerResult is the verdict of one scanner
type ScannerResult struct {
	Score   float64 `json:"score"`
	IsValid bool    `json:"is_valid"`
	Risk    string  `json:"risk,omitempty"`
}

// NewPromptGuard creates a guard from settings
func NewPromptGuard(s GuardSettings) *PromptGuard {
	return &PromptGuard{
		baseURL:    strings.TrimRight(s.URL, "/"),
		token:      s.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether a guard URL is configured
func (g *PromptGuard) Enabled() bool {
	return g != nil && g.baseURL != ""
}

// ScanPrompt checks an outgoing prompt. It returns the prompt to send, which
// is the sanitized one when the scanner rewrote it, or an ErrPromptRejected
// error when a scanner failed.
func (g *PromptGuard) ScanPrompt(ctx context.Context, prompt string) (string, error) {
	if !g.Enabled() {
		return prompt, nil
	}
	resp, err := g.scan(ctx, "/scan/prompt", guardScanRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	if !resp.IsValid {
		return "", ErrPromptRejected(FormatScanIssues(resp))
	}
	if resp.SanitizedPrompt != "" {
		return resp.SanitizedPrompt, nil
	}
	return prompt, nil
}

// ScanOutput checks an answer before it is shown. Issues are reported as text
// rather than an error; the answer is still displayed.
func (g *PromptGuard) ScanOutput(ctx context.Context, output string) (string, error) {
	if !g.Enabled() {
		return "", nil
	}
	resp, err := g.scan(ctx, "/scan/output", guardScanRequest{Output: output})
	if err != nil {
		return "", err
	}
	if resp.IsValid {
		return "", nil
	}
	return FormatScanIssues(resp), nil
}

func (g *PromptGuard) scan(ctx context.Context, endpoint string, req guardScanRequest) (*GuardScanResponse, error) {
	headers := map[string]string{}
	if g.token != "" {
		headers["Authorization"] = "Bearer " + g.token
	}
	var result GuardScanResponse
	if err := doJSON(ctx, g.httpClient, http.MethodPost, g.baseURL+endpoint, headers, req, &result); err != nil {
		return nil, fmt.Errorf("llm-guard: %w", err)
	}
	return &result, nil
}

// FormatScanIssues lists the failed scanners, sorted by name
func FormatScanIssues(resp *GuardScanResponse) string {
	if resp == nil || resp.IsValid {
		return ""
	}

	names := make([]string, 0, len(resp.Results))
	for name, r := range resp.Results {
		if !r.IsValid {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "Security scan rejected the text"
	}
	slices.Sort(names)

	issues := make([]string, 0, len(names))
	for _, name := range names {
		r := resp.Results[name]
		issue := fmt.Sprintf("- %s: score=%.2f", name, r.Score)
		if r.Risk != "" {
			issue += fmt.Sprintf(" (%s)", r.Risk)
		}
		issues = append(issues, issue)
	}
	return "Security scan detected issues:\n" + strings.Join(issues, "\n")
}
