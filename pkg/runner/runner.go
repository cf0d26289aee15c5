// Package runner owns the process lifecycle: banner, start, wait for
// shutdown, ordered drain.
package runner

import (
	"bytes"
	"context"
	"io"

	"github.com/dimiro1/banner"
)

type Phase int

const (
	PhaseNew Phase = iota
	PhaseStarting
	PhaseRunning
	PhaseDraining
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseStopped:
		return "stopped"
	}
	return "unknown"
}

type Runner interface {
	Run(ctx context.Context) error
	Stop() error
	Phase() Phase
}

// Drainer releases a component at shutdown.
type Drainer interface {
	Drain() error
}

// DrainerFunc adapts a function to Drainer.
type DrainerFunc func() error

func (f DrainerFunc) Drain() error { return f() }

// Version is overridden at build time with -ldflags.
var Version = "dev"

// PrintBanner writes the HALO banner to w.
func PrintBanner(w io.Writer, color bool) {
	tpl := "{{ .Title \"HALO\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(w, true, color, bytes.NewBufferString(tpl))
}
