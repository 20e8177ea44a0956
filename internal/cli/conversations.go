package cli

import (
	"fmt"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/format"
	"github.com/spf13/cobra"
)

func (a *app) newConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Browse customer conversations",
	}
	cmd.AddCommand(a.newConversationsListCmd())
	cmd.AddCommand(a.newConversationsShowCmd())
	return cmd
}

func (a *app) newConversationsListCmd() *cobra.Command {
	var params domain.ListParams
	cmd := &cobra.Command{
		Use:   "list <agent-id>",
		Short: "List the conversations of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.agents.FetchAgentConversations(cmd.Context(), args[0], params)
			if err != nil {
				return fmt.Errorf("list conversations: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(page.Items) == 0 {
				fmt.Fprintln(out, "No conversations found.")
				return nil
			}
			for _, c := range page.Items {
				fmt.Fprintf(out, "  %-6s %-20s %-22s %4d msgs  %s\n",
					c.ID, format.Truncate(c.UserName, 20), format.DateTime(c.StartTime), c.MessageCount,
					colorize(format.StatusColor(string(c.Status)), c.Status.Label()))
				if c.Summary != "" {
					fmt.Fprintf(out, "         %s\n", hintStyle.Render(format.Truncate(c.Summary, 70)))
				}
			}
			fmt.Fprintf(out, "\nPage %d of %d (%d total)\n", page.Page, page.TotalPages, page.Total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&params.Page, "page", "p", 1, "page number")
	cmd.Flags().IntVarP(&params.PageSize, "page-size", "n", domain.DefaultPageSize, "conversations per page")
	return cmd
}

func (a *app) newConversationsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.client.GetConversation(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get conversation: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", titleStyle.Render(d.UserName), d.Status.Label())
			fmt.Fprintf(out, "%s\n\n", format.DateTime(d.StartTime))
			for _, m := range d.Messages {
				fmt.Fprintf(out, "[%s] %s: %s\n", format.Timestamp(m.Timestamp), roleText(m.Role), m.Content)
			}
			return nil
		},
	}
}
