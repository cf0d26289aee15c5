package cmd

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/harunnryd/halo/pkg/runner"
	"github.com/harunnryd/halo/pkg/session"
	"github.com/harunnryd/halo/pkg/timers"
	"github.com/harunnryd/halo/pkg/turn"
	"github.com/spf13/cobra"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	var noBanner bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run an interactive session driven by steps on stdin",
		Long: `Run a live session with wall-clock phase timers. Each stdin line is a
step (wake, tap, submit, ready <text>, complete, neterr, timeout, reset,
wait <duration>, state). EOF, "quit" or an interrupt drains and exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			printer := newTransitionPrinter(out, time.Now())
			a, err := wireApp(ctx, cfg, wireOptions{
				Timer:     timers.NewWall(),
				Out:       out,
				ErrOut:    cmd.ErrOrStderr(),
				Listeners: []turn.Listener{printer},
			})
			if err != nil {
				return err
			}
			opts := runner.Options{
				Drainers: a.drainers,
				Logger:   a.log,
				OnStart: func(ctx context.Context) error {
					go func() { _ = a.session.Run(ctx) }()
					go func() {
						readSteps(ctx, cmd.InOrStdin(), a.session, printer)
						stop()
					}()
					return nil
				},
			}
			if !noBanner {
				opts.Banner = out
			}
			return runner.New(opts).Run(ctx)
		},
	}
	runCmd.Flags().BoolVar(&noBanner, "no-banner", false, "skip the startup banner")
	return runCmd
}

// readSteps applies one step per line until EOF, "quit" or ctx ends.
func readSteps(ctx context.Context, in io.Reader, s *session.Session, p *transitionPrinter) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		step, err := session.ParseStep(line)
		if err != nil {
			p.println("! " + err.Error())
			continue
		}
		snap, err := session.Apply(ctx, s, step)
		p.step(step, snap, err)
	}
}
