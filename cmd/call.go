package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/nightline/internal/model"
)

var (
	callName     string
	callLocation string
)

var callCmd = &cobra.Command{
	Use:   "call <phone>",
	Short: "Audit a single phone number",
	Long:  "Places one audit call, waits for it to finish, prints the full result as JSON. Diagnostic tool; the result is not recorded in any run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		eng, err := initEngine(ctx, st)
		if err != nil {
			return err
		}

		target := model.CallTarget{
			Phone:        args[0],
			BusinessName: callName,
			Location:     callLocation,
		}
		result := eng.AuditOne(ctx, target)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	callCmd.Flags().StringVar(&callName, "name", "", "business name for the call metadata")
	callCmd.Flags().StringVar(&callLocation, "location", "", "business location for the call metadata")
	rootCmd.AddCommand(callCmd)
}
