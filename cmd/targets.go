package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/reviewpulse/reviewpulse/internal/registry"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the predefined analysis targets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := registry.Load(cfg.Targets.Path)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tCOMPANY\tPRODUCT\tQUERIES")
		for _, t := range reg.All() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				t.Identifier(), t.Company, t.Product, strings.Join(t.SearchQueries, "; "))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}
