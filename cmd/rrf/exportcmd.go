package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rrf/internal/export"
)

var (
	exportFormat   string
	exportOutput   string
	exportCompress bool
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a stored run",
	Long: `Export a run's record, waveform, and spectrum for external
visualization tools.

Examples:
  rrf export 4f9d... --format yaml
  rrf export 4f9d... --output run.json.gz --compress`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format (json, yaml)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().BoolVar(&exportCompress, "compress", false, "Gzip-compress the output")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	logger := newLogger("human")

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	root := mustGetRoot()
	mustGetEngine(root, logger) // opens the shared store

	rec, payload, err := sharedDB.GetRun(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading run: %v\n", err)
		os.Exit(1)
	}

	if exportOutput != "" {
		if err := export.WriteFile(exportOutput, rec, payload, format, exportCompress); err != nil {
			return err
		}
		fmt.Printf("Run %s exported to %s\n", rec.RunID, exportOutput)
		return nil
	}
	return export.Write(os.Stdout, rec, payload, format, exportCompress)
}
