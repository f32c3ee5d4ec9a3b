package main

// History is the recall state for submitted inputs. Entries are only ever
// appended. pos is the recalled index plus one, so the zero value means no
// recall is in progress.
type History struct {
	entries []string
	pos     int
	overlay bool
}

// NewHistory returns a history seeded with previously persisted entries,
// oldest first.
func NewHistory(entries []string) *History {
	h := &History{}
	h.entries = append(h.entries, entries...)
	return h
}

// Record appends text and ends any recall in progress.
func (h *History) Record(text string) {
	h.entries = append(h.entries, text)
	h.pos = 0
}

// MoveOlder steps the cursor toward the oldest entry and loads it into buf.
func (h *History) MoveOlder(buf *string) {
	if len(h.entries) == 0 {
		return
	}
	h.overlay = true

	switch {
	case h.pos == 0:
		h.pos = len(h.entries)
	case h.pos > 1:
		h.pos--
	default:
		return
	}
	*buf = h.entries[h.pos-1]
}

// MoveNewer steps the cursor toward the newest entry. Moving past the newest
// entry ends the recall and clears buf.
func (h *History) MoveNewer(buf *string) {
	if len(h.entries) == 0 || h.pos == 0 {
		return
	}
	if h.pos < len(h.entries) {
		h.pos++
		*buf = h.entries[h.pos-1]
		return
	}
	h.pos = 0
	h.overlay = false
	*buf = ""
}

// Dismiss ends the recall without touching the input buffer.
func (h *History) Dismiss() {
	h.pos = 0
	h.overlay = false
}

// Select loads entry i into buf, as when a row of the overlay is picked.
func (h *History) Select(i int, buf *string) bool {
	if i < 0 || i >= len(h.entries) {
		return false
	}
	h.pos = i + 1
	h.overlay = false
	*buf = h.entries[i]
	return true
}

// Cursor returns the recall position, if any.
func (h *History) Cursor() (int, bool) {
	if h.pos == 0 {
		return -1, false
	}
	return h.pos - 1, true
}

func (h *History) OverlayVisible() bool { return h.overlay }

func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of all entries, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Recent returns up to n entries, newest first.
func (h *History) Recent(n int) []string {
	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]string, 0, n)
	for i := len(h.entries) - 1; i >= len(h.entries)-n; i-- {
		out = append(out, h.entries[i])
	}
	return out
}

// Window returns the index of the first of the last n entries together with
// those entries, oldest first.
func (h *History) Window(n int) (int, []string) {
	start := len(h.entries) - n
	if start < 0 {
		start = 0
	}
	return start, h.entries[start:]
}
