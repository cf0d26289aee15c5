package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/harunnryd/halo/pkg/config"
	"github.com/harunnryd/halo/pkg/session"
	"github.com/harunnryd/halo/pkg/timers"
	"github.com/harunnryd/halo/pkg/turn"
	"github.com/spf13/cobra"
)

var simulationEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newSimulateCmd(flags *rootFlags) *cobra.Command {
	var inline []string
	simulateCmd := &cobra.Command{
		Use:   "simulate [script]",
		Short: "Replay a trigger script on a virtual clock",
		Long: `Replay a trigger script on a virtual clock and print every transition.

Steps, one per line: wake, tap, submit, ready <text>, complete, neterr,
timeout, reset, wait <duration>, state. Lines starting with # are ignored.
The script is read from the given file, from stdin when the file is "-" or
missing, or from repeated --step flags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			steps, err := readScript(cmd, args, inline)
			if err != nil {
				return err
			}
			return simulate(cmd.Context(), cfg, steps, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	simulateCmd.Flags().StringArrayVarP(&inline, "step", "s", nil, "script step, repeatable; replaces the script file")
	return simulateCmd
}

func readScript(cmd *cobra.Command, args, inline []string) ([]session.Step, error) {
	if len(inline) > 0 {
		if len(args) > 0 {
			return nil, errors.New("use either a script file or --step, not both")
		}
		return session.ParseScript(strings.NewReader(strings.Join(inline, "\n")))
	}
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return session.ParseScript(r)
}

func simulate(ctx context.Context, cfg config.Config, steps []session.Step, out, errOut io.Writer) error {
	clock := timers.NewManual(simulationEpoch)
	printer := newTransitionPrinter(out, clock.Now())
	a, err := wireApp(ctx, cfg, wireOptions{
		Timer:     clock,
		Now:       clock.Now,
		Clock:     clock,
		AsyncMode: config.AsyncInline,
		Out:       out,
		ErrOut:    errOut,
		Listeners: []turn.Listener{printer},
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = a.session.Run(ctx) }()

	rejected := 0
	for _, step := range steps {
		printer.println("> " + step.String())
		snap, err := session.Apply(ctx, a.session, step)
		printer.step(step, snap, err)
		if errors.Is(err, turn.ErrInvalidTransition) {
			rejected++
			continue
		}
		if err != nil {
			return errors.Join(err, a.drain())
		}
	}
	final, err := a.session.Snapshot(ctx)
	if err != nil {
		return errors.Join(err, a.drain())
	}
	printer.println(fmt.Sprintf("%s final rejected=%d", describe(final), rejected))
	return a.drain()
}
