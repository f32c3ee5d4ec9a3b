package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	// PasteCollapseThreshold is the minimum number of lines before collapsing pasted text
	PasteCollapseThreshold = 5
	// PasteLineTimeout is max time between lines to consider it part of the same paste
	PasteLineTimeout = 150 * time.Millisecond
)

// ErrInputClosed is returned once the input stream is exhausted
var ErrInputClosed = errors.New("input closed")

// InputReader reads submissions line by line. On a terminal, lines that
// arrive within the paste window are joined into one submission.
type InputReader struct {
	scanner     *bufio.Scanner
	theme       *Theme
	pasteWindow time.Duration
	pasteNum    int
	lineChan    chan string
	errChan     chan error
	done        chan struct{}
}

// NewInputReader creates a reader over r. A zero pasteWindow treats every
// line as its own submission.
func NewInputReader(r io.Reader, theme *Theme, pasteWindow time.Duration) *InputReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	ir := &InputReader{
		scanner:     scanner,
		theme:       theme,
		pasteWindow: pasteWindow,
		lineChan:    make(chan string),
		errChan:     make(chan error, 1),
		done:        make(chan struct{}),
	}

	// Start background reader
	go ir.backgroundReader()

	return ir
}

// backgroundReader continuously reads lines and sends them to the channel
func (ir *InputReader) backgroundReader() {
	defer close(ir.lineChan)
	for ir.scanner.Scan() {
		select {
		case ir.lineChan <- ir.scanner.Text():
		case <-ir.done:
			return
		}
	}
	if err := ir.scanner.Err(); err != nil {
		ir.errChan <- err
	}
}

// ReadInput returns the next submission and how to display it. Pastes longer
// than PasteCollapseThreshold lines are shown collapsed.
func (ir *InputReader) ReadInput() (fullText string, displayText string, err error) {
	var lines []string

	// Wait for first line (blocking)
	line, ok := <-ir.lineChan
	if !ok {
		select {
		case err := <-ir.errChan:
			return "", "", fmt.Errorf("read input: %w", err)
		default:
			return "", "", ErrInputClosed
		}
	}
	lines = append(lines, line)

	if ir.pasteWindow > 0 {
		// If lines come in rapidly, it's a paste
	collecting:
		for {
			select {
			case line, ok := <-ir.lineChan:
				if !ok {
					break collecting
				}
				lines = append(lines, line)
			case <-time.After(ir.pasteWindow):
				break collecting
			}
		}
	}

	fullText = strings.Join(lines, "\n")

	switch {
	case len(lines) > PasteCollapseThreshold:
		ir.pasteNum++
		displayText = ir.formatCollapsedPaste(lines)
	case len(lines) > 1:
		displayText = fmt.Sprintf("%s %s", lines[0], ir.theme.Dim(fmt.Sprintf("+%d lines", len(lines)-1)))
	default:
		displayText = fullText
	}

	return fullText, displayText, nil
}

// formatCollapsedPaste formats a collapsed paste display
func (ir *InputReader) formatCollapsedPaste(lines []string) string {
	firstLine := lines[0]
	if len(firstLine) > 50 {
		firstLine = firstLine[:47] + "..."
	}

	return fmt.Sprintf("%s %s %s",
		ir.theme.Accent(fmt.Sprintf("[Pasted text #%d]", ir.pasteNum)),
		firstLine,
		ir.theme.Dim(fmt.Sprintf("+%d lines", len(lines)-1)),
	)
}

// Close stops the background reader once its current line is consumed
func (ir *InputReader) Close() {
	select {
	case <-ir.done:
	default:
		close(ir.done)
	}
}
