package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ashureev/wooagent/internal/simulate"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func (a *app) newDemoCmd() *cobra.Command {
	var script, speed string
	var instant bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Replay a scripted customer chat",
		Long: `Replay one of the demo chats the way a customer would see it.

Scripts: sales, support, product, general. Speeds: 0.5, 1, 2.

Examples:
  wooctl demo --script support
  wooctl demo --script sales --speed 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := simulate.ParseSpeed(speed)
			if err != nil {
				return err
			}
			sc := a.seed.Script(script)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(sc.Title))

			r := simulate.NewReplay(sc, s)
			if instant {
				for {
					ev, _ := r.Step()
					if err := printDemoEvent(cmd.Context(), out, ev, nil, s); err != nil {
						return err
					}
					if ev.Phase == simulate.PhaseComplete {
						return nil
					}
				}
			}
			return r.Run(cmd.Context(), a.opts.Clock, func(ev simulate.Event) error {
				return printDemoEvent(cmd.Context(), out, ev, a.opts.Clock, s)
			})
		},
	}
	cmd.Flags().StringVarP(&script, "script", "s", "general", "script to replay")
	cmd.Flags().StringVar(&speed, "speed", "1", "playback speed")
	cmd.Flags().BoolVar(&instant, "instant", false, "print the whole chat without delays")
	return public(cmd)
}

// printDemoEvent renders one replay transition. With a clock, messages appear
// character by character.
func printDemoEvent(ctx context.Context, out io.Writer, ev simulate.Event, clock clockwork.Clock, speed float64) error {
	if ev.Message != nil {
		prefix := fmt.Sprintf("%s: ", roleText(ev.Message.Role))
		if err := typeOut(ctx, out, prefix, ev.Message.Content, clock, speed); err != nil {
			return err
		}
	}
	switch ev.Phase {
	case simulate.PhaseTyping:
		fmt.Fprintln(out, hintStyle.Render("customer is typing..."))
	case simulate.PhaseThinking:
		fmt.Fprintln(out, hintStyle.Render("agent is thinking..."))
	case simulate.PhaseComplete:
		fmt.Fprintf(out, "\n%s\n", hintStyle.Render(fmt.Sprintf("Demo complete: %d messages", ev.Total)))
	}
	return nil
}

func typeOut(ctx context.Context, out io.Writer, prefix, text string, clock clockwork.Clock, speed float64) error {
	if clock == nil {
		_, err := fmt.Fprintln(out, prefix+text)
		return err
	}
	fmt.Fprint(out, prefix)
	for _, r := range text {
		fmt.Fprint(out, string(r))
		if strings.ContainsRune(" \n", r) {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(time.Duration(float64(simulate.TypingDelay()) / speed)):
		}
	}
	_, err := fmt.Fprintln(out)
	return err
}
