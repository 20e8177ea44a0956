package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/ashureev/wooagent/internal/console"
	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/format"
	"github.com/spf13/cobra"
)

func (a *app) newAgentsKnowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "knowledge",
		Aliases: []string{"sources"},
		Short:   "Manage the knowledge sources of an agent",
	}
	cmd.AddCommand(a.newSourcesListCmd())
	cmd.AddCommand(a.newSourcesAddCmd())
	cmd.AddCommand(a.newSourcesRemoveCmd())
	return cmd
}

func (a *app) newSourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <agent-id>",
		Short: "List the knowledge sources of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := a.agents.KnowledgeSources(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list sources: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Knowledge sources (%d)\n", len(sources))
			if len(sources) == 0 {
				fmt.Fprintln(out, hintStyle.Render("No sources yet. Add one with `wooctl agents knowledge add`."))
				return nil
			}
			for _, src := range sources {
				detail := format.Truncate(src.Content, 50)
				if src.Type == domain.SourceFile {
					detail = format.FileSize(src.FileSize)
				}
				fmt.Fprintf(out, "  %-36s %-4s %-24s %s  %s\n",
					src.ID, src.Type, format.Truncate(src.Name, 24), detail, format.Date(src.AddedAt))
			}
			return nil
		},
	}
}

func (a *app) newSourcesAddCmd() *cobra.Command {
	var urlSource, text, file, name string
	cmd := &cobra.Command{
		Use:   "add <agent-id>",
		Short: "Attach a URL, text or file to an agent",
		Long: `Attach one knowledge source to an agent. URL sources are named after
their host unless --name is given. Files must be TXT, PDF, DOC or DOCX up to 5MB.

Examples:
  wooctl agents knowledge add 1 --url https://shop.example.com/faq
  wooctl agents knowledge add 1 --text "Free shipping over 200 NIS" --name Shipping
  wooctl agents knowledge add 1 --file ./returns.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src domain.KnowledgeSource
			var err error
			switch {
			case file != "":
				info, statErr := os.Stat(file)
				if statErr != nil {
					return fmt.Errorf("read file: %w", statErr)
				}
				src, err = a.agents.AddKnowledgeFile(cmd.Context(), args[0], file, info.Size())
			case urlSource != "":
				src, err = a.agents.AddKnowledgeSource(cmd.Context(), args[0],
					console.SourceInput{Type: domain.SourceURL, Content: urlSource, Name: name})
			case text != "":
				src, err = a.agents.AddKnowledgeSource(cmd.Context(), args[0],
					console.SourceInput{Type: domain.SourceText, Content: text, Name: name})
			default:
				return errors.New("one of --url, --text or --file is required")
			}
			if err != nil {
				return fmt.Errorf("add source: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s source %s (%s)\n", src.Type, src.Name, src.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&urlSource, "url", "", "web page to learn from")
	cmd.Flags().StringVar(&text, "text", "", "free text")
	cmd.Flags().StringVar(&file, "file", "", "document to upload")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.MarkFlagsMutuallyExclusive("url", "text", "file")
	return cmd
}

func (a *app) newSourcesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <agent-id> <source-id>",
		Short: "Detach a knowledge source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.agents.RemoveKnowledgeSource(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("remove source: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed source %s\n", args[1])
			return nil
		},
	}
}
