package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/nightline/internal/cost"
	"github.com/sells-group/nightline/internal/export"
	"github.com/sells-group/nightline/internal/leads"
)

var (
	auditFile   string
	auditLabel  string
	auditLimit  int
	audit24Only bool
	auditDryRun bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run an audit batch from a lead file",
	Long:  "Dials every lead in the file one at a time, classifies what answered, checkpoints results, and exports the run artifacts.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		targets, err := leads.Load(auditFile)
		if err != nil {
			return err
		}
		if audit24Only {
			targets = leads.Filter24x7(targets)
		}
		targets = leads.Limit(targets, auditLimit)
		if len(targets) == 0 {
			fmt.Fprintln(os.Stderr, "No targets to audit.")
			return nil
		}

		if auditDryRun {
			fmt.Printf("Would dial %d targets:\n", len(targets))
			for _, t := range targets {
				marker := ""
				if t.Claims24x7 {
					marker = "  [24/7]"
				}
				fmt.Printf("  %-16s %s (%s)%s\n", t.Phone, t.BusinessName, t.Location, marker)
			}
			return nil
		}

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

		run, runErr := eng.Run(ctx, auditLabel, targets)
		if run == nil {
			return runErr
		}

		exp, err := export.New(initExportDir())
		if err != nil {
			return err
		}
		paths, err := exp.WriteAll(run)
		if err != nil {
			return eris.Wrap(err, "export run artifacts")
		}

		spend := cost.NewCalculator(cost.DefaultRates()).RunCost(run)
		fmt.Printf("\nRun %s: %d dialed, %d qualified, ~$%.2f provider spend\n",
			run.ID, run.Stats.Total, run.Stats.Qualified, spend)
		for _, p := range paths {
			fmt.Printf("  %s\n", p)
		}
		return runErr
	},
}

func init() {
	auditCmd.Flags().StringVarP(&auditFile, "file", "f", "leads.tsv", "lead file, .tsv or .xlsx (phone, name, location)")
	auditCmd.Flags().StringVar(&auditLabel, "label", "", "label for this run")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "max targets to dial (0 = all)")
	auditCmd.Flags().BoolVar(&audit24Only, "24-only", false, "only dial leads advertising 24/7 service")
	auditCmd.Flags().BoolVar(&auditDryRun, "dry-run", false, "list targets without dialing")
	rootCmd.AddCommand(auditCmd)
}
