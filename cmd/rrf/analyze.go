package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	analyzeFormat string
	analyzeFile   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Analyze the coherence of a text",
	Long: `Excite the field with the given text, evolve it, and report the
spectral coherence of the resulting waveform. Reads from --file or stdin
when no text argument is given.

Examples:
  rrf analyze "the quick brown fox"
  rrf analyze --file notes.txt
  echo "some text" | rrf analyze`,
	Args: cobra.ArbitraryArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "human", "Output format (json, human)")
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "Read input text from a file")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	start := time.Now()
	logger := newLogger(analyzeFormat)

	text, err := readInputText(args)
	if err != nil {
		return err
	}

	root := mustGetRoot()
	eng := mustGetEngine(root, logger)
	ctx := newContext()

	rec, result, err := eng.Analyze(ctx, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing text: %v\n", err)
		os.Exit(1)
	}

	resp := &AnalyzeResponseCLI{
		RunID:             rec.RunID,
		Coherence:         result.Metric.Coherence,
		DominantFrequency: result.DominantFrequency,
		HarmonicFrequency: result.HarmonicFrequency,
		Energy:            result.Energy,
		Parameters:        result.Metric.Parameters,
		WaveformSamples:   len(result.Waveform),
	}

	output, err := FormatResponse(resp, OutputFormat(analyzeFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	if analyzeFormat == "human" {
		fmt.Printf("(Analysis took %dms)\n", time.Since(start).Milliseconds())
	}
	return nil
}

// readInputText resolves the input text from args, --file, or stdin
func readInputText(args []string) (string, error) {
	if analyzeFile != "" {
		data, err := os.ReadFile(analyzeFile)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("no input text: pass text as an argument, use --file, or pipe to stdin")
}
