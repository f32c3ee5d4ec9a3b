package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubProber answers from a fixed set and records what it was asked.
type stubProber struct {
	known map[string]bool
	asked []string
}

func (p *stubProber) CommandExists(_ context.Context, name string) bool {
	p.asked = append(p.asked, name)
	return p.known[name]
}

func newStubProber(names ...string) *stubProber {
	p := &stubProber{known: map[string]bool{}}
	for _, n := range names {
		p.known[n] = true
	}
	return p
}

func TestLooksLikeNaturalLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"conversational pattern", "Can you list the files", true},
		{"pattern mid sentence", "ok so please run it", true},
		{"greeting prefix", "hello, there", true},
		{"question mark", "ls?", true},
		{"greeting word", "Hey", true},
		{"greeting with comma", "greetings, computer", true},
		{"indicator ratio", "create file notes", true},
		{"indicator with punctuation", "build docs, make txt.", true},
		{"article with four tokens", "grep foo the bar", true},
		{"plain command", "ls -la", false},
		{"command with args", "git commit -m fix", false},
		{"two indicator words", "make file", false},
		{"one indicator in three tokens", "cat the log", true},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeNaturalLanguage(tt.text), "text=%q", tt.text)
		})
	}
}

func TestRatioRuleNeedsThreeTokens(t *testing.T) {
	// Both tokens are indicator words, but two tokens is below the ratio floor.
	for _, text := range []string{"make file", "the text", "write", "and or"} {
		assert.False(t, LooksLikeNaturalLanguage(text), "text=%q", text)
	}
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("known command", func(t *testing.T) {
		p := newStubProber("ls")
		c := NewClassifier(p)
		assert.Equal(t, KindCommand, c.Classify(ctx, "  ls -la  "))
		assert.Equal(t, []string{"ls"}, p.asked)
	})

	t.Run("unknown command", func(t *testing.T) {
		c := NewClassifier(newStubProber())
		assert.Equal(t, KindNaturalLanguage, c.Classify(ctx, "frobnicate now"))
	})

	t.Run("question never probes", func(t *testing.T) {
		p := newStubProber("ls", "what")
		c := NewClassifier(p)
		assert.Equal(t, KindNaturalLanguage, c.Classify(ctx, "ls?"))
		assert.Equal(t, KindNaturalLanguage, c.Classify(ctx, "what"+"?"))
		assert.Empty(t, p.asked)
	})

	t.Run("empty input", func(t *testing.T) {
		p := newStubProber()
		c := NewClassifier(p)
		assert.Equal(t, KindNaturalLanguage, c.Classify(ctx, "   "))
		assert.Empty(t, p.asked)
	})

	t.Run("unsafe name is not probed", func(t *testing.T) {
		p := newStubProber("$(reboot)")
		c := NewClassifier(p)
		assert.False(t, c.IsShellCommand(ctx, "$(reboot) now"))
		assert.False(t, c.IsShellCommand(ctx, "ls;rm"))
		assert.Empty(t, p.asked)
	})

	t.Run("paths are allowed", func(t *testing.T) {
		p := newStubProber("./build.sh", `C:\tools\x.exe`)
		c := NewClassifier(p)
		assert.True(t, c.IsShellCommand(ctx, "./build.sh --fast"))
		assert.True(t, c.IsShellCommand(ctx, `C:\tools\x.exe`))
	})
}

func TestInputKindString(t *testing.T) {
	assert.Equal(t, "command", KindCommand.String())
	assert.Equal(t, "natural-language", KindNaturalLanguage.String())
}

func TestNewInputLine(t *testing.T) {
	in := NewInputLine("  git status \n")
	assert.Equal(t, "git status", in.Trimmed)
	assert.Equal(t, "  git status \n", in.Raw)
}
