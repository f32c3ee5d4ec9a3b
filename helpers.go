package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// doJSON sends body (if any) as JSON and decodes a 200 response into out
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

var (
	fencedBlock     = regexp.MustCompile("(?s)```(?:bash|sh|shell|zsh|console|powershell|pwsh|ps1|cmd|bat)?[ \t]*\n(.*?)\n?```")
	openFencedBlock = regexp.MustCompile("(?s)```(?:bash|sh|shell|zsh|console|powershell|pwsh|ps1|cmd|bat)[ \t]*\n(.+)")
)

// extractCommand returns the first fenced shell block of an assistant answer,
// with console prompts ("$ ", "> ", "PS> ") removed
func extractCommand(response string) string {
	// Normalize line endings (Windows \r\n to \n)
	response = strings.ReplaceAll(response, "\r\n", "\n")

	var body string
	if m := fencedBlock.FindStringSubmatch(response); len(m) >= 2 {
		body = m[1]
	} else if m := openFencedBlock.FindStringSubmatch(response); len(m) >= 2 {
		// truncated answer, no closing fence
		body = m[1]
	}

	lines := strings.Split(strings.TrimSpace(body), "\n")
	for i, line := range lines {
		for _, prompt := range []string{"$ ", "PS> ", "> "} {
			if strings.HasPrefix(line, prompt) {
				lines[i] = strings.TrimPrefix(line, prompt)
				break
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// stripMarkdown removes common markdown formatting from text for terminal display
func stripMarkdown(text string) string {
	// Remove bold (**text** or __text__)
	re := regexp.MustCompile(`\*\*([^*]+)\*\*`)
	text = re.ReplaceAllString(text, "$1")
	re = regexp.MustCompile(`__([^_]+)__`)
	text = re.ReplaceAllString(text, "$1")

	// Remove inline code (`text`)
	re = regexp.MustCompile("`([^`\n]+)`")
	text = re.ReplaceAllString(text, "$1")

	// Remove fence lines but keep their contents
	re = regexp.MustCompile("(?m)^```[a-zA-Z0-9]*[ \t]*\n?")
	text = re.ReplaceAllString(text, "")

	// Headers
	re = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	return re.ReplaceAllString(text, "")
}

// wrapText wraps text to a specified width, preserving paragraph breaks
func wrapText(text string, width int) []string {
	var result []string
	paragraphs := strings.Split(text, "\n")

	for _, para := range paragraphs {
		para = strings.TrimRight(para, " \t\r")
		if para == "" {
			result = append(result, "")
			continue
		}
		if width <= 0 || len(para) <= width {
			result = append(result, para)
			continue
		}

		indent := para[:len(para)-len(strings.TrimLeft(para, " \t"))]
		words := strings.Fields(para)

		line := indent
		for _, word := range words {
			if strings.TrimSpace(line) == "" {
				line = indent + word
			} else if len(line)+1+len(word) <= width {
				line += " " + word
			} else {
				result = append(result, line)
				line = indent + word
			}
		}
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}

	return result
}

// shortModelName extracts a readable model name from the full ID
func shortModelName(modelID string) string {
	// anthropic.claude-3-5-sonnet-20241022-v2:0 -> claude-3-5-sonnet
	if idx := strings.Index(modelID, "anthropic."); idx >= 0 {
		modelID = modelID[idx+len("anthropic."):]
	}
	if strings.HasPrefix(modelID, "claude-") {
		if idx := strings.Index(modelID, "-202"); idx > 0 {
			return modelID[:idx]
		}
	}
	return modelID
}

// expandHome replaces a leading ~ with the user's home directory
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// maskSecret keeps the last four characters of a key for display
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
