package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harunnryd/halo/pkg/turn"
)

// StepKind distinguishes script steps.
type StepKind int

const (
	StepFire StepKind = iota
	StepWait
	StepState
)

// Step is one line of a session script.
type Step struct {
	Kind    StepKind
	Trigger turn.Trigger
	Text    string
	Wait    time.Duration
}

var stepWords = map[string]turn.Trigger{
	"wake":     turn.TriggerWakeWord,
	"tap":      turn.TriggerButtonTapped,
	"submit":   turn.TriggerRequestSubmitted,
	"ready":    turn.TriggerResponseReady,
	"complete": turn.TriggerResponseComplete,
	"neterr":   turn.TriggerNetworkError,
	"timeout":  turn.TriggerTimeout,
	"reset":    turn.TriggerReset,
}

func init() {
	for _, t := range turn.Triggers {
		stepWords[string(t)] = t
	}
}

// ParseStep parses one script line, such as "wake", "ready hello there" or
// "wait 2s". Trigger names are also accepted in their long form.
func ParseStep(line string) (Step, error) {
	line = strings.TrimSpace(line)
	word, rest, _ := strings.Cut(line, " ")
	word = strings.ToLower(word)
	rest = strings.TrimSpace(rest)
	switch word {
	case "":
		return Step{}, fmt.Errorf("empty step")
	case "wait":
		d, err := time.ParseDuration(rest)
		if err != nil {
			return Step{}, fmt.Errorf("wait: %w", err)
		}
		if d < 0 {
			return Step{}, fmt.Errorf("wait: negative duration %s", d)
		}
		return Step{Kind: StepWait, Wait: d}, nil
	case "state":
		return Step{Kind: StepState}, nil
	}
	trigger, ok := stepWords[word]
	if !ok {
		return Step{}, fmt.Errorf("unknown step %q", word)
	}
	if trigger != turn.TriggerResponseReady && rest != "" {
		return Step{}, fmt.Errorf("%s takes no argument", word)
	}
	return Step{Kind: StepFire, Trigger: trigger, Text: rest}, nil
}

// ParseScript reads one step per line. Blank lines and lines starting with
// '#' are skipped.
func ParseScript(r io.Reader) ([]Step, error) {
	var steps []Step
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		step, err := ParseStep(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		steps = append(steps, step)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

func (s Step) String() string {
	switch s.Kind {
	case StepWait:
		return "wait " + s.Wait.String()
	case StepState:
		return "state"
	}
	if s.Text != "" {
		return string(s.Trigger) + " " + s.Text
	}
	return string(s.Trigger)
}

// Apply runs step against s and returns the snapshot taken right after it.
// A rejected trigger returns the snapshot together with the error.
func Apply(ctx context.Context, s *Session, step Step) (Snapshot, error) {
	switch step.Kind {
	case StepWait:
		if err := s.wait(ctx, step.Wait); err != nil {
			return Snapshot{}, err
		}
		return s.snapshotOn(ctx, true)
	case StepState:
		return s.Snapshot(ctx)
	default:
		return s.fire(ctx, step.Trigger, step.Text)
	}
}
