package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/format"
	"github.com/spf13/cobra"
)

func (a *app) newStatsCmd() *cobra.Command {
	var agentID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		Long: `Show the dashboard overview, or the analytics of one agent with --agent.

Examples:
  wooctl stats
  wooctl stats --agent 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if agentID != "" {
				st, err := a.agents.FetchAgentStats(cmd.Context(), agentID)
				if err != nil {
					return fmt.Errorf("get agent stats: %w", err)
				}
				printAgentStats(out, st)
				return nil
			}

			if _, err := a.agents.FetchAgents(cmd.Context()); err != nil {
				return fmt.Errorf("list agents: %w", err)
			}
			overview, err := a.client.GetStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}
			st := a.agents.Stats()
			fmt.Fprintln(out, titleStyle.Render("Overview"))
			fmt.Fprintf(out, "Interactions:        %s\n", format.Number(int64(st.TotalInteractions)))
			fmt.Fprintf(out, "Stores:              %s\n", format.Number(int64(st.TotalStores)))
			fmt.Fprintf(out, "Active agents:       %s (%v%%)\n", colorize(format.Green, format.Number(int64(st.ActiveAgents))), st.ActivePercent())
			fmt.Fprintf(out, "Inactive agents:     %s\n", colorize(format.Red, format.Number(int64(st.InactiveAgents))))
			fmt.Fprintf(out, "Avg response time:   %vs\n", st.AverageResponseTime)
			fmt.Fprintf(out, "Avg completion time: %vm\n", st.AverageCompletionTime)
			fmt.Fprintf(out, "Response accuracy:   %v%%\n", st.ResponseAccuracy)
			fmt.Fprintf(out, "Conversion rate:     %v%%\n", overview.ConversionRate)
			fmt.Fprintf(out, "Conversations:       %s\n", format.Number(int64(overview.TotalConversations)))
			printDaily(out, overview.DailyConversations)
			return nil
		},
	}
	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "show the statistics of one agent")
	return cmd
}

func printAgentStats(out io.Writer, st domain.AgentStats) {
	fmt.Fprintln(out, titleStyle.Render("Agent "+st.AgentID))
	fmt.Fprintf(out, "Conversations:     %s\n", format.Number(int64(st.TotalConversations)))
	fmt.Fprintf(out, "Avg response time: %vs\n", st.AverageResponseTime)
	fmt.Fprintf(out, "Satisfaction:      %v%%\n", st.UserSatisfaction)
	fmt.Fprintf(out, "Conversion rate:   %v%%\n", st.ConversionRate)
	printDaily(out, st.DailyConversations)
	if len(st.TopQuestions) > 0 {
		fmt.Fprintln(out, "\nTop questions:")
		for i, q := range st.TopQuestions {
			fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, q.Question, format.Number(int64(q.Count)))
		}
	}
}

// printDaily draws the daily series as a bar chart scaled to the busiest day.
func printDaily(out io.Writer, days []domain.DailyCount) {
	if len(days) == 0 {
		return
	}
	peak := 0
	for _, d := range days {
		peak = max(peak, d.Count)
	}
	fmt.Fprintln(out, "\nDaily conversations:")
	for _, d := range days {
		width := 0
		if peak > 0 {
			width = d.Count * 30 / peak
		}
		bar := colorize(format.Blue, fmt.Sprintf("%-30s", strings.Repeat("█", width)))
		fmt.Fprintf(out, "  %s %s %s\n", d.Date, bar, format.Number(int64(d.Count)))
	}
}

