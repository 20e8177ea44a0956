package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/format"
	"github.com/ashureev/wooagent/internal/simulate"
	"github.com/spf13/cobra"
)

type logFlags struct {
	typ   string
	level string
	json  bool
}

func (f *logFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.typ, "type", "t", "all", "only lines of this type")
	cmd.Flags().StringVarP(&f.level, "level", "l", "all", "only lines at or above this level (debug|info|warning|error)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print one JSON object per line")
}

func (f *logFlags) filter() (simulate.Filter, error) {
	filter, err := simulate.ParseFilter(f.typ, f.level)
	if err != nil {
		return filter, fmt.Errorf("invalid filter: %w", err)
	}
	return filter, nil
}

func (f *logFlags) print(out io.Writer, e domain.LogEntry) error {
	if f.json {
		return json.NewEncoder(out).Encode(e)
	}
	_, err := fmt.Fprintf(out, "%s %-7s %-13s %s\n",
		format.Timestamp(e.Timestamp), levelText(e.Level), e.Type, e.Message)
	return err
}

func (a *app) newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Read agent logs",
	}
	cmd.AddCommand(a.newLogsListCmd())
	cmd.AddCommand(a.newLogsTailCmd())
	return cmd
}

func (a *app) newLogsListCmd() *cobra.Command {
	var flags logFlags
	cmd := &cobra.Command{
		Use:   "list <agent-id>",
		Short: "Print the stored activity log of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			entries, err := a.agents.FetchAgentLogs(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get logs: %w", err)
			}
			out := cmd.OutOrStdout()
			n := 0
			for _, e := range entries {
				if !filter.Match(e) {
					continue
				}
				if err := flags.print(out, e); err != nil {
					return err
				}
				n++
			}
			if n == 0 && !flags.json {
				fmt.Fprintln(out, hintStyle.Render("No log lines match."))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

var errStopTail = errors.New("stop tail")

func (a *app) newLogsTailCmd() *cobra.Command {
	var flags logFlags
	var follow bool
	cmd := &cobra.Command{
		Use:   "tail <agent-id>",
		Short: "Follow the live log of an agent",
		Long: `Print the recent live log of an agent, newest first, then follow new lines
until interrupted.

Examples:
  wooctl logs tail 1
  wooctl logs tail 1 --level warning
  wooctl logs tail 1 --type api_request --json > requests.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			err = a.client.StreamLogs(cmd.Context(), args[0], filter, func(f simulate.Frame) error {
				switch f.Type {
				case simulate.FrameSnapshot:
					for _, e := range f.Entries {
						if err := flags.print(out, e); err != nil {
							return err
						}
					}
					if !follow {
						return errStopTail
					}
				case simulate.FrameEntry:
					if f.Entry != nil {
						return flags.print(out, *f.Entry)
					}
				case simulate.FrameError:
					return errors.New(f.Error)
				}
				return nil
			})
			if errors.Is(err, errStopTail) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("tail logs: %w", err)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&follow, "follow", "f", true, "keep printing new lines")
	return cmd
}
