package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tilepull",
	Short: "Bulk downloader for slippy-map raster tiles",
	Long: `tilepull downloads raster map tiles from an XYZ tile server across a
geographic bounding box (or an explicit tile X/Y range) and a zoom range,
writing them to an {output}/{z}/{x}/{y}.{ext} tree that map viewers can
serve directly. Repeated runs skip tiles already on disk.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	cfgFile    string
	flagURL    string
	minZoom    int
	maxZoom    int
	minLat     float64
	minLon     float64
	maxLat     float64
	maxLon     float64
	minX       int
	maxX       int
	minY       int
	maxY       int
	output     string
	workers    int
	retries    int
	timeout    string
	userAgent  string
	proxyURL   string
	retina     bool
	quiet      bool
	noProgress bool
)

// addRangeFlags registers the flags shared by download and estimate.
func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagURL, "url", "", "Tile URL preset name or template with {z}/{x}/{y} (default \"dark_all\")")
	cmd.Flags().IntVar(&minZoom, "min-zoom", -1, "Start zoom level (required)")
	cmd.Flags().IntVar(&maxZoom, "max-zoom", -1, "End zoom level (required)")
	cmd.Flags().Float64Var(&minLat, "min-lat", 0, "Minimum latitude of the bounding box")
	cmd.Flags().Float64Var(&minLon, "min-lon", 0, "Minimum longitude of the bounding box")
	cmd.Flags().Float64Var(&maxLat, "max-lat", 0, "Maximum latitude of the bounding box")
	cmd.Flags().Float64Var(&maxLon, "max-lon", 0, "Maximum longitude of the bounding box")
	cmd.Flags().IntVar(&minX, "min-x", 0, "Minimum tile X (mutually exclusive with lat/lon flags)")
	cmd.Flags().IntVar(&maxX, "max-x", 0, "Maximum tile X")
	cmd.Flags().IntVar(&minY, "min-y", 0, "Minimum tile Y")
	cmd.Flags().IntVar(&maxY, "max-y", 0, "Maximum tile Y")
	cmd.Flags().StringVar(&cfgFile, "config", "", "Optional YAML config file")
}

func init() {
	addRangeFlags(downloadCmd)
	downloadCmd.Flags().StringVar(&output, "output", "", "Output directory (default tiles_download_<timestamp>)")
	downloadCmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent download workers (default 10)")
	downloadCmd.Flags().IntVar(&retries, "retries", -1, "Max retries per tile on transient errors (default 3)")
	downloadCmd.Flags().StringVar(&timeout, "timeout", "", "Per-request timeout, e.g. 10s")
	downloadCmd.Flags().StringVar(&userAgent, "user-agent", "", "Custom User-Agent header")
	downloadCmd.Flags().StringVar(&proxyURL, "proxy", "", "HTTP(S) proxy URL")
	downloadCmd.Flags().BoolVar(&retina, "retina", false, "Request @2x retina tiles where the template has {r}")
	downloadCmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress progress output")
	downloadCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the live progress bar")

	addRangeFlags(estimateCmd)

	rootCmd.AddCommand(downloadCmd, estimateCmd, presetsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
