package hooks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/harunnryd/halo/pkg/redact"
	"github.com/harunnryd/halo/pkg/turn"
)

var stateColors = map[turn.State]string{
	turn.StateIdle:       "#6C7086",
	turn.StateListening:  "#3C7EFF",
	turn.StateThinking:   "#C678DD",
	turn.StateResponding: "#2EB67D",
	turn.StateError:      "#E5484D",
}

// Console renders the overlay as a coloured badge line per hook. Colour is
// dropped automatically when out is not a terminal.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	preview int
	badge   map[turn.State]lipgloss.Style
	muted   lipgloss.Style
}

// NewConsole returns hooks that draw to out.
func NewConsole(out io.Writer, preview int) *Console {
	if preview <= 0 {
		preview = DefaultPreviewChars
	}
	r := lipgloss.NewRenderer(out)
	badge := make(map[turn.State]lipgloss.Style, len(stateColors))
	for s, c := range stateColors {
		badge[s] = r.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color(c))
	}
	return &Console{
		out:     out,
		preview: preview,
		badge:   badge,
		muted:   r.NewStyle().Faint(true),
	}
}

func (c *Console) line(s string) turn.Work {
	return func(context.Context) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, err := fmt.Fprintln(c.out, s)
		return err
	}
}

func (c *Console) ShowOverlay(s turn.State) (turn.Work, error) {
	return c.line(c.badge[s].Render(s.String())), nil
}

func (c *Console) HideOverlay(s turn.State) (turn.Work, error) {
	return c.line(c.muted.Render("hide " + s.String())), nil
}

func (c *Console) StartCapture() (turn.Work, error) {
	return c.line(c.muted.Render("mic on")), nil
}

func (c *Console) StopCapture() (turn.Work, error) {
	return c.line(c.muted.Render("mic off")), nil
}

func (c *Console) StartSpeech(text string) (turn.Work, error) {
	return c.line(c.muted.Render("say ") + fmt.Sprintf("%q", redact.Preview(text, c.preview))), nil
}

func (c *Console) StopSpeech() (turn.Work, error) {
	return c.line(c.muted.Render("speech off")), nil
}
