package view

import (
	"strings"
)

// BottomTolerance is how far from the end, in rows, the viewer may be and
// still count as "at the bottom". It is about the height of 50px of log text
// in a browser.
const BottomTolerance = 3

const (
	// NoLogsText replaces a null log snapshot.
	NoLogsText = "No logs available"
	// ClearedText is shown after the operator clears the log display.
	ClearedText = "Logs cleared. Refresh to reload."
)

// ScrollState is the scroll position of the log surface before an update.
// All fields share one unit (lines in the terminal dashboard).
type ScrollState struct {
	Offset         int
	ContentHeight  int
	ViewportHeight int
}

// AtBottom reports whether the viewer is at or near the end of the content.
func (s ScrollState) AtBottom() bool {
	return s.ContentHeight-s.Offset <= s.ViewportHeight+BottomTolerance
}

// ScrollTarget is where the log surface should be after an update.
type ScrollTarget struct {
	// ToBottom forces the view to the end of the new content.
	ToBottom bool
	// Offset is the resulting offset, already clamped to the new content.
	Offset int
}

// LogView is the drawn form of a log snapshot.
type LogView struct {
	Text   string
	Lines  int
	Scroll ScrollTarget
}

// RenderLogView replaces the displayed log text and decides the scroll
// position. The "at bottom" test uses the state before replacement; the view
// follows the end when autoScroll is on or the viewer was already there, and
// otherwise keeps whatever offset survives the content swap.
func RenderLogView(prev ScrollState, logs *string, autoScroll bool) LogView {
	wasAtBottom := prev.AtBottom()

	text := NoLogsText
	if logs != nil && *logs != "" {
		text = *logs
	}

	lines := countLines(text)
	maxOffset := max(0, lines-prev.ViewportHeight)

	target := ScrollTarget{Offset: min(max(0, prev.Offset), maxOffset)}
	if autoScroll || wasAtBottom {
		target = ScrollTarget{ToBottom: true, Offset: maxOffset}
	}

	return LogView{Text: text, Lines: lines, Scroll: target}
}

// ClearedLogView is the placeholder shown until the next refresh replaces it.
func ClearedLogView() LogView {
	return LogView{Text: ClearedText, Lines: 1}
}

// countLines matches how the viewport splits content into rows.
func countLines(text string) int {
	return len(strings.Split(text, "\n"))
}
