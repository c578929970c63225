package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmRequestMsg asks the model to show a yes/no dialog. The answer goes
// back on reply, which has room for exactly one value.
type confirmRequestMsg struct {
	message string
	reply   chan bool
}

// poster queues a message for the running program.
type poster interface {
	Post(msg tea.Msg)
}

// DialogConfirmer implements engine.Confirmer with an in-dashboard dialog.
// Confirm blocks its caller (an action command goroutine) until the operator
// answers; the event loop itself never waits.
type DialogConfirmer struct {
	out poster
}

// NewDialogConfirmer creates a confirmer that posts dialogs through out.
func NewDialogConfirmer(out poster) *DialogConfirmer {
	return &DialogConfirmer{out: out}
}

// Confirm shows message and waits for the answer. A cancelled ctx is a no.
func (c *DialogConfirmer) Confirm(ctx context.Context, message string) bool {
	reply := make(chan bool, 1)
	c.out.Post(confirmRequestMsg{message: message, reply: reply})

	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}
