package main

import (
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestInputReaderLines(t *testing.T) {
	defer goleak.VerifyNone(t)

	ir := NewInputReader(strings.NewReader("ls -la\nexplain pipes\n"), NewTheme("default", termenv.Ascii), 0)
	defer ir.Close()

	for _, want := range []string{"ls -la", "explain pipes"} {
		text, display, err := ir.ReadInput()
		require.NoError(t, err)
		assert.Equal(t, want, text)
		assert.Equal(t, want, display)
	}
	_, _, err := ir.ReadInput()
	assert.ErrorIs(t, err, ErrInputClosed)
}

func TestInputReaderPaste(t *testing.T) {
	defer goleak.VerifyNone(t)

	theme := NewTheme("default", termenv.Ascii)
	tests := []struct {
		name        string
		input       string
		wantText    string
		wantDisplay string
	}{
		{
			name:        "two lines",
			input:       "echo one\necho two\n",
			wantText:    "echo one\necho two",
			wantDisplay: "echo one +1 lines",
		},
		{
			name:        "collapsed",
			input:       "a\nb\nc\nd\ne\nf\n",
			wantText:    "a\nb\nc\nd\ne\nf",
			wantDisplay: "[Pasted text #1] a +5 lines",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ir := NewInputReader(strings.NewReader(tt.input), theme, PasteLineTimeout)
			defer ir.Close()

			text, display, err := ir.ReadInput()
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantDisplay, display)
		})
	}
}

func TestInputReaderCloseStopsReader(t *testing.T) {
	defer goleak.VerifyNone(t)

	ir := NewInputReader(strings.NewReader("one\ntwo\nthree\n"), NewTheme("default", termenv.Ascii), 0)
	text, _, err := ir.ReadInput()
	require.NoError(t, err)
	assert.Equal(t, "one", text)
	ir.Close()
	ir.Close()
}
