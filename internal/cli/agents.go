package cli

import (
	"fmt"
	"io"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/format"
	"github.com/ashureev/wooagent/internal/wizard"
	"github.com/spf13/cobra"
)

// agentFlags maps command flags onto form fields.
var agentFlags = map[string]string{
	"name":            "name",
	"description":     "description",
	"platform":        "platform",
	"platform-token":  "platformToken",
	"store-name":      "storeName",
	"store-url":       "storeUrl",
	"consumer-key":    "consumerKey",
	"consumer-secret": "consumerSecret",
	"openai-key":      "openaiKey",
	"model":           "model",
}

var editOnlyFlags = map[string]string{
	"personality":     "personality",
	"system-prompt":   "systemPrompt",
	"welcome-message": "welcomeMessage",
	"status":          "status",
}

func addAgentFlags(cmd *cobra.Command, flags map[string]string) {
	for flag, field := range flags {
		cmd.Flags().String(flag, "", field)
	}
}

func (a *app) newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agents",
		Aliases: []string{"agent"},
		Short:   "Manage agents",
	}
	cmd.AddCommand(a.newAgentsListCmd())
	cmd.AddCommand(a.newAgentsShowCmd())
	cmd.AddCommand(a.newAgentsCreateCmd())
	cmd.AddCommand(a.newAgentsEditCmd())
	cmd.AddCommand(a.newAgentsToggleCmd())
	cmd.AddCommand(a.newAgentsDeleteCmd())
	cmd.AddCommand(a.newAgentsShareCmd())
	cmd.AddCommand(a.newAgentsSettingsCmd())
	cmd.AddCommand(a.newAgentsKnowledgeCmd())
	return cmd
}

func (a *app) newAgentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			agents, err := a.agents.FetchAgents(cmd.Context())
			if err != nil {
				return fmt.Errorf("list agents: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(agents) == 0 {
				fmt.Fprintln(out, "No agents yet. Create one with `wooctl agents create`.")
				return nil
			}
			fmt.Fprintf(out, "Agents (%d):\n\n", len(agents))
			for _, ag := range agents {
				fmt.Fprintf(out, "  %-6s %-28s %-9s %-8s %6s  %s\n",
					ag.ID, format.Truncate(ag.Name, 28), ag.Platform, statusText(ag.Status),
					format.Number(int64(ag.ConversationsCount)), ag.StoreURL)
			}
			st := a.agents.Stats()
			fmt.Fprintf(out, "\n%s active, %s inactive, %s stores\n",
				colorize(format.Green, format.Number(int64(st.ActiveAgents))),
				colorize(format.Red, format.Number(int64(st.InactiveAgents))),
				format.Number(int64(st.TotalStores)))
			return nil
		},
	}
}

func printAgent(out io.Writer, ag *domain.Agent) {
	fmt.Fprintf(out, "%s  %s\n", titleStyle.Render(ag.Name), statusText(ag.Status))
	if ag.Description != "" {
		fmt.Fprintf(out, "%s\n", hintStyle.Render(ag.Description))
	}
	fmt.Fprintf(out, "\nID:            %s\n", ag.ID)
	fmt.Fprintf(out, "Platform:      %s (%s)\n", ag.Platform, format.PlatformIcon(string(ag.Platform)))
	fmt.Fprintf(out, "Store:         %s %s\n", ag.StoreName, ag.StoreURL)
	fmt.Fprintf(out, "Model:         %s\n", ag.Model)
	fmt.Fprintf(out, "Conversations: %s\n", format.Number(int64(ag.ConversationsCount)))
	fmt.Fprintf(out, "Created:       %s\n", format.DateTime(ag.CreatedAt))
	fmt.Fprintf(out, "Updated:       %s\n", format.DateTime(ag.UpdatedAt))
	p := ag.Params
	fmt.Fprintf(out, "Params:        temperature=%v maxTokens=%d topP=%v frequencyPenalty=%v presencePenalty=%v\n",
		p.Temperature, p.MaxTokens, p.TopP, p.FrequencyPenalty, p.PresencePenalty)
	if ag.WelcomeMessage != "" {
		fmt.Fprintf(out, "Welcome:       %s\n", ag.WelcomeMessage)
	}
	if len(ag.KnowledgeSources) > 0 {
		fmt.Fprintf(out, "Knowledge:\n")
		for _, k := range ag.KnowledgeSources {
			label := k.Name
			if label == "" {
				label = format.Truncate(k.Content, 50)
			}
			fmt.Fprintf(out, "  - [%s] %s\n", k.Type, label)
		}
	}
}

func (a *app) newAgentsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := a.agents.FetchAgentByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get agent: %w", err)
			}
			printAgent(cmd.OutOrStdout(), ag)
			return nil
		},
	}
}

func (a *app) newAgentsCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent",
		Long: `Create an agent. Values missing from flags are asked for step by step
when running in a terminal.

Examples:
  wooctl agents create
  wooctl agents create --name Sales --platform telegram --platform-token 123:ABC \
    --store-url https://shop.example.com --consumer-key ck_1 --consumer-secret cs_1 --openai-key sk-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := wizard.NewCreateAgent()
			setChanged(cmd, w, agentFlags)
			if err := a.fill(cmd, w); err != nil {
				return err
			}
			return w.Submit(func(v wizard.Values) error {
				ag, err := a.agents.AddAgent(cmd.Context(), wizard.CreateAgentInput(v))
				if err != nil {
					return fmt.Errorf("create agent: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created agent %s (%s)\n", ag.Name, ag.ID)
				return nil
			})
		},
	}
	addAgentFlags(cmd, agentFlags)
	return cmd
}

func (a *app) newAgentsEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := a.agents.FetchAgentByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get agent: %w", err)
			}
			w := wizard.NewEditAgent(ag)
			setChanged(cmd, w, agentFlags)
			setChanged(cmd, w, editOnlyFlags)
			if err := a.fill(cmd, w); err != nil {
				return err
			}
			return w.Submit(func(v wizard.Values) error {
				patch := wizard.EditAgentPatch(v, ag)
				if patch.IsZero() {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to change.")
					return nil
				}
				updated, err := a.agents.EditAgent(cmd.Context(), ag.ID, patch)
				if err != nil {
					return fmt.Errorf("update agent: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated agent %s (%s)\n", updated.Name, updated.ID)
				return nil
			})
		},
	}
	addAgentFlags(cmd, agentFlags)
	addAgentFlags(cmd, editOnlyFlags)
	return cmd
}

func (a *app) newAgentsToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Switch an agent between active and inactive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := a.agents.FetchAgentByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get agent: %w", err)
			}
			next := ag.Status.Toggle()
			updated, err := a.agents.EditAgent(cmd.Context(), ag.ID, domain.AgentPatch{Status: &next})
			if err != nil {
				return fmt.Errorf("toggle agent: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", updated.Name, statusText(updated.Status))
			return nil
		},
	}
}

func (a *app) newAgentsDeleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an agent",
		Long: `Delete an agent. This cannot be undone.
Requires confirmation unless --force is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := a.agents.FetchAgentByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get agent: %w", err)
			}
			if !force {
				ok, err := a.prompter(cmd).confirm(fmt.Sprintf("Delete %s (%s)?", ag.Name, ag.ID))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			if err := a.agents.RemoveAgent(cmd.Context(), ag.ID); err != nil {
				return fmt.Errorf("delete agent: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", ag.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}

func (a *app) newAgentsShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share <id>",
		Short: "Print the customer chat link of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := a.agents.FetchAgentShareLink(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get share link: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), link.ShareLink)
			return nil
		},
	}
}

var settingsFlags = map[string]string{
	"temperature":       "temperature",
	"max-tokens":        "maxTokens",
	"top-p":             "topP",
	"frequency-penalty": "frequencyPenalty",
	"presence-penalty":  "presencePenalty",
}

func (a *app) newAgentsSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings <id>",
		Short: "Show or change the model parameters of an agent",
		Long: `Without flags, print the current parameters. With flags, update them.

Examples:
  wooctl agents settings 1
  wooctl agents settings 1 --temperature 0.3 --max-tokens 1024`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := a.agents.FetchAgentByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get agent: %w", err)
			}
			w := wizard.NewAdvancedSettings(ag.Params)
			changed := false
			for flag := range settingsFlags {
				changed = changed || cmd.Flags().Changed(flag)
			}
			out := cmd.OutOrStdout()
			if !changed && !a.opts.Interactive {
				for _, f := range w.Current().Fields {
					fmt.Fprintf(out, "%-26s %s\n", f.Label, w.Value(f.Name))
				}
				return nil
			}
			setChanged(cmd, w, settingsFlags)
			if err := a.fill(cmd, w); err != nil {
				return err
			}
			return w.Submit(func(v wizard.Values) error {
				params, err := wizard.GenerationParams(v)
				if err != nil {
					return err
				}
				if _, err := a.agents.EditAgent(cmd.Context(), ag.ID, domain.AgentPatch{Params: &params}); err != nil {
					return fmt.Errorf("update settings: %w", err)
				}
				fmt.Fprintf(out, "Saved settings for %s\n", ag.Name)
				return nil
			})
		},
	}
	addAgentFlags(cmd, settingsFlags)
	return cmd
}
