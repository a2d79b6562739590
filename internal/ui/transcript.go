package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/muurk/hcat/internal/hcdevice"
)

// Exchange is one AT command and what came back.
type Exchange struct {
	Kind     string
	BaudRate int
	Command  []byte
	Response []byte
	OK       bool
	Wait     time.Duration
}

// Transcript collects the AT traffic of a command for verbose output.
// Probe cells that got no answer are left out unless KeepSilent is set.
type Transcript struct {
	Title      string
	MaxLines   int // 0 means unlimited; older lines are dropped first
	KeepSilent bool
	Width      int

	mu        sync.Mutex
	exchanges []Exchange
}

// NewTranscript creates an empty transcript box
func NewTranscript() *Transcript {
	return &Transcript{Title: "AT Transcript", Width: GetTerminalWidth()}
}

// Record stores a transaction event. Other event types are ignored.
func (t *Transcript) Record(e hcdevice.Event) {
	if e.Type != hcdevice.EventTransaction {
		return
	}
	if len(e.Response) == 0 && !t.KeepSilent {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exchanges = append(t.exchanges, Exchange{
		Kind:     e.Kind.String(),
		BaudRate: e.BaudRate,
		Command:  append([]byte(nil), e.Command...),
		Response: append([]byte(nil), e.Response...),
		OK:       e.OK,
		Wait:     e.Wait,
	})
}

// Observer adapts Record for hcdevice.WithObserver
func (t *Transcript) Observer() hcdevice.Observer {
	return t.Record
}

// Len returns the number of recorded exchanges
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.exchanges)
}

// Lines returns the transcript as plain text, two lines per exchange.
func (t *Transcript) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := make([]string, 0, 2*len(t.exchanges))
	for _, x := range t.exchanges {
		lines = append(lines, fmt.Sprintf("→ %s  @%d", Escape(x.Command), x.BaudRate))
		reply := "(no reply)"
		if len(x.Response) > 0 {
			reply = Escape(x.Response)
		}
		lines = append(lines, fmt.Sprintf("← %s  (%s)", reply, x.Wait.Round(time.Millisecond)))
	}
	if t.MaxLines > 0 && len(lines) > t.MaxLines {
		lines = lines[len(lines)-t.MaxLines:]
	}
	return lines
}

// Render returns the transcript in a muted box, colouring sent and
// received lines.
func (t *Transcript) Render() string {
	width := t.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	out := []string{TranscriptTitleStyle.Render(t.Title)}
	lines := t.Lines()
	if len(lines) == 0 {
		out = append(out, StepNoteStyle.Render("no AT traffic"))
	}
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "→"):
			out = append(out, TranscriptTxStyle.Render(l))
		case strings.HasPrefix(l, "← (no reply)"), strings.Contains(l, "ERROR"):
			out = append(out, TranscriptFailStyle.Render(l))
		default:
			out = append(out, TranscriptRxStyle.Render(l))
		}
	}
	return TranscriptBoxStyle(width).Render(strings.Join(out, "\n"))
}

// Escape shows CR and LF literally so terminators are visible.
func Escape(b []byte) string {
	r := strings.NewReplacer("\r", `\r`, "\n", `\n`)
	return r.Replace(string(b))
}
