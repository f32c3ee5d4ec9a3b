package main

import (
	"context"
	"strings"
)

// InputKind is where a submitted line should go.
type InputKind int

const (
	KindNaturalLanguage InputKind = iota
	KindCommand
)

func (k InputKind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindNaturalLanguage:
		return "natural-language"
	default:
		return "unknown"
	}
}

// InputLine is one submission as typed and trimmed.
type InputLine struct {
	Raw     string
	Trimmed string
}

func NewInputLine(raw string) InputLine {
	return InputLine{Raw: raw, Trimmed: strings.TrimSpace(raw)}
}

// CommandProber answers whether a command name resolves on this system.
type CommandProber interface {
	CommandExists(ctx context.Context, name string) bool
}

// Classifier routes input to the shell or the language model.
type Classifier struct {
	prober CommandProber
}

func NewClassifier(prober CommandProber) *Classifier {
	return &Classifier{prober: prober}
}

// Classify runs the conversational heuristics first and only probes the
// system when none of them fire. Anything that cannot be verified as a
// command is treated as natural language.
func (c *Classifier) Classify(ctx context.Context, text string) InputKind {
	if c.IsShellCommand(ctx, text) {
		return KindCommand
	}
	return KindNaturalLanguage
}

func (c *Classifier) IsShellCommand(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if LooksLikeNaturalLanguage(text) {
		return false
	}
	name := commandName(text)
	if name == "" || !validCommandName(name) {
		return false
	}
	return c.prober.CommandExists(ctx, name)
}

var conversationalPatterns = []string{
	"can you", "could you", "would you", "will you",
	"how do", "how can", "how to",
	"what is", "what are", "where is", "where are",
	"when is", "when are", "why is", "why are", "why do", "why does",
	"please", "help me", "i need", "i want",
	"show me", "tell me", "explain", "describe",
	"hi,", "hello,", "hey,",
}

var greetingWords = map[string]bool{
	"hi": true, "hello": true, "hey": true, "greetings": true,
}

var indicatorWords = map[string]bool{
	"a": true, "an": true, "the": true, "that": true, "this": true,
	"with": true, "for": true, "and": true, "or": true,
	"make": true, "create": true, "write": true, "generate": true, "build": true,
	"show": true, "display": true,
	"file": true, "txt": true, "simple": true, "says": true, "text": true, "document": true,
}

// LooksLikeNaturalLanguage applies the cheap conversational heuristics.
func LooksLikeNaturalLanguage(text string) bool {
	lower := strings.ToLower(text)

	for _, p := range conversationalPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}

	if strings.HasSuffix(text, "?") {
		return true
	}

	words := strings.Fields(lower)
	if len(words) > 0 && greetingWords[strings.TrimRight(words[0], ",")] {
		return true
	}

	if len(words) >= 3 {
		hits := 0
		for _, w := range words {
			if indicatorWords[strings.TrimRight(w, ",.!?")] {
				hits++
			}
		}
		if float64(hits)/float64(len(words)) > 0.25 {
			return true
		}
	}

	if len(words) >= 4 {
		for _, article := range []string{" a ", " an ", " the "} {
			if strings.Contains(lower, article) {
				return true
			}
		}
	}

	return false
}

func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// validCommandName rejects names that would change the meaning of the probe
// templates they are spliced into.
func validCommandName(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("._+-/\\:~", r):
		default:
			return false
		}
	}
	return true
}
