package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"rrf/internal/version"
)

var (
	statusFormat string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine status",
	Long:  "Display the current tuner state, parameters, and run store size",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	start := time.Now()
	logger := newLogger(statusFormat)

	root := mustGetRoot()
	eng := mustGetEngine(root, logger)

	count, err := sharedDB.CountRuns()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error counting runs: %v\n", err)
		os.Exit(1)
	}

	resp := &StatusResponseCLI{
		Version:    version.Version,
		TunerState: string(eng.TunerState()),
		Parameters: eng.Parameters(),
		RunCount:   count,
	}

	output, err := FormatResponse(resp, OutputFormat(statusFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	if statusFormat == "human" {
		fmt.Printf("(Query took %dms)\n", time.Since(start).Milliseconds())
	}
	return nil
}
