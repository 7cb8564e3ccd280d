package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tilepull/internal/provider"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in tile URL presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTEMPLATE")
		for _, name := range provider.PresetNames() {
			fmt.Fprintf(w, "%s\t%s\n", name, provider.Presets[name])
		}
		return w.Flush()
	},
}
