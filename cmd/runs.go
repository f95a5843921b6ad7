package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moazrovne/harvest-cli/internal/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent harvest runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		log, err := runlog.Open(cfg.RunLog.Path)
		if err != nil {
			return err
		}
		defer log.Close() //nolint:errcheck

		entries, err := log.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No runs recorded yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tKIND\tSTATUS\tNEW\tLAST ID\tERROR")
		for _, e := range entries {
			errMsg := e.Error
			if len(errMsg) > 60 {
				errMsg = errMsg[:57] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				e.StartedAt.Local().Format("2006-01-02 15:04:05"),
				e.Kind, e.Status, e.NewRecords, e.LastID, errMsg)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum runs to show")
	rootCmd.AddCommand(runsCmd)
}
