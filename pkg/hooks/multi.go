package hooks

import (
	"context"
	"errors"

	"github.com/harunnryd/halo/pkg/turn"
)

// Multi fans each hook out to several implementations. The combined work
// runs the parts in order and joins their errors.
type Multi []turn.Hooks

// NewMulti drops nil entries.
func NewMulti(list ...turn.Hooks) Multi {
	out := make(Multi, 0, len(list))
	for _, h := range list {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func (m Multi) collect(factory func(turn.Hooks) (turn.Work, error)) (turn.Work, error) {
	works := make([]turn.Work, 0, len(m))
	for _, h := range m {
		w, err := factory(h)
		if err != nil {
			return nil, err
		}
		if w != nil {
			works = append(works, w)
		}
	}
	return func(ctx context.Context) error {
		var errs []error
		for _, w := range works {
			if err := w(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}, nil
}

func (m Multi) ShowOverlay(s turn.State) (turn.Work, error) {
	return m.collect(func(h turn.Hooks) (turn.Work, error) { return h.ShowOverlay(s) })
}

func (m Multi) HideOverlay(s turn.State) (turn.Work, error) {
	return m.collect(func(h turn.Hooks) (turn.Work, error) { return h.HideOverlay(s) })
}

func (m Multi) StartCapture() (turn.Work, error) {
	return m.collect(turn.Hooks.StartCapture)
}

func (m Multi) StopCapture() (turn.Work, error) {
	return m.collect(turn.Hooks.StopCapture)
}

func (m Multi) StartSpeech(text string) (turn.Work, error) {
	return m.collect(func(h turn.Hooks) (turn.Work, error) { return h.StartSpeech(text) })
}

func (m Multi) StopSpeech() (turn.Work, error) {
	return m.collect(turn.Hooks.StopSpeech)
}
