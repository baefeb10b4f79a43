package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/nightline/internal/export"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Re-export the artifacts of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export: load run")
		}

		dir := exportDir
		if dir == "" {
			dir = initExportDir()
		}
		exp, err := export.New(dir)
		if err != nil {
			return err
		}

		paths, err := exp.WriteAll(run)
		if err != nil {
			return eris.Wrap(err, "export run artifacts")
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "", "output directory (default from config)")
	rootCmd.AddCommand(exportCmd)
}
