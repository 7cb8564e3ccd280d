package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Print the tile count per zoom level without downloading",
	RunE:  runEstimate,
}

func runEstimate(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	source, plan, err := buildPlan(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ZOOM\tTILES\tX RANGE\tY RANGE")
	for _, r := range plan.Ranges {
		fmt.Fprintf(w, "%d\t%d\t%d-%d\t%d-%d\n", r.Zoom, r.Count(), r.MinX, r.MaxX, r.MinY, r.MaxY)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d tiles total from %s\n", plan.Total, source.Template())
	return nil
}
