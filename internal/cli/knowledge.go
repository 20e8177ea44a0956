package cli

import (
	"fmt"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/format"
	"github.com/spf13/cobra"
)

func (a *app) newKnowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kb",
		Aliases: []string{"knowledge"},
		Short:   "Manage knowledge bases",
	}
	cmd.AddCommand(a.newKnowledgeListCmd())
	cmd.AddCommand(a.newKnowledgeShowCmd())
	cmd.AddCommand(a.newKnowledgeCreateCmd())
	cmd.AddCommand(a.newKnowledgeDeleteCmd())
	return cmd
}

func (a *app) newKnowledgeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List knowledge bases",
		RunE: func(cmd *cobra.Command, args []string) error {
			kbs, err := a.client.GetKnowledgeBases(cmd.Context())
			if err != nil {
				return fmt.Errorf("list knowledge bases: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(kbs) == 0 {
				fmt.Fprintln(out, "No knowledge bases found.")
				return nil
			}
			for _, kb := range kbs {
				fmt.Fprintf(out, "  %-6s %-28s %-6s %4d items  %s\n",
					kb.ID, format.Truncate(kb.Name, 28), kb.Type, kb.ItemCount, format.Date(kb.UpdatedAt))
			}
			return nil
		},
	}
}

func (a *app) newKnowledgeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a knowledge base and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, err := a.client.GetKnowledgeBase(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get knowledge base: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  [%s]\n", titleStyle.Render(kb.Name), kb.Type)
			if kb.Description != "" {
				fmt.Fprintln(out, hintStyle.Render(kb.Description))
			}
			fmt.Fprintln(out)
			for _, it := range kb.Items {
				if kb.Type == domain.KnowledgeFiles {
					fmt.Fprintf(out, "  - %s (%s)\n", it.Name, format.FileSize(it.Size))
					continue
				}
				fmt.Fprintf(out, "  - %s: %s\n", it.Name, format.Truncate(it.Content, 60))
			}
			return nil
		},
	}
}

func (a *app) newKnowledgeCreateCmd() *cobra.Command {
	var in domain.KnowledgeBaseInput
	var typ string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a knowledge base",
		Long: `Create an empty knowledge base.

Examples:
  wooctl kb create --name "Return policy" --type text`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Type = domain.KnowledgeBaseType(typ)
			kb, err := a.client.CreateKnowledgeBase(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create knowledge base: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created knowledge base %s (%s)\n", kb.Name, kb.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "knowledge base name")
	cmd.Flags().StringVar(&in.Description, "description", "", "short description")
	cmd.Flags().StringVar(&typ, "type", string(domain.KnowledgeText), "files or text")
	return cmd
}

func (a *app) newKnowledgeDeleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				ok, err := a.prompter(cmd).confirm(fmt.Sprintf("Delete knowledge base %s?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			if err := a.client.DeleteKnowledgeBase(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete knowledge base: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted knowledge base %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}
