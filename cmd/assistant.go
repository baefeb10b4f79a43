package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/nightline/pkg/vapi"
)

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Manage the provider-side audit assistant",
}

var assistantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured assistants",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := initVapi()
		if err != nil {
			return err
		}

		assistants, err := client.ListAssistants(cmd.Context())
		if err != nil {
			return err
		}
		if len(assistants) == 0 {
			fmt.Fprintln(os.Stderr, "No assistants configured.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME")
		for _, a := range assistants {
			fmt.Fprintf(tw, "%s\t%s\n", a.ID, a.Name)
		}
		return tw.Flush()
	},
}

var assistantEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the audit assistant if it does not exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := initVapi()
		if err != nil {
			return err
		}

		id, err := vapi.EnsureAssistant(cmd.Context(), client, cfg.Vapi.AssistantName)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", id, cfg.Vapi.AssistantName)
		return nil
	},
}

func init() {
	assistantCmd.AddCommand(assistantListCmd)
	assistantCmd.AddCommand(assistantEnsureCmd)
	rootCmd.AddCommand(assistantCmd)
}
