package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rrf/internal/engine"
	"rrf/internal/storage"
	"rrf/internal/tuner"
)

var (
	tuneFormat  string
	tuneRounds  int
	tuneSession string
)

var tuneCmd = &cobra.Command{
	Use:   "tune [text]",
	Short: "Run a coherence tuning session",
	Long: `Alternate analysis and parameter adjustment over a fixed text,
hill-climbing the coherence metric until it converges or the round
budget runs out. A session preset file (TOML) can bundle the text,
round count, and tuner overrides for repeatable experiments.

Examples:
  rrf tune "the quick brown fox" --rounds 20
  rrf tune --session experiments/baseline.toml`,
	Args: cobra.ArbitraryArgs,
	RunE: runTune,
}

func init() {
	tuneCmd.Flags().StringVar(&tuneFormat, "format", "human", "Output format (json, human)")
	tuneCmd.Flags().IntVar(&tuneRounds, "rounds", 10, "Maximum number of tuning rounds")
	tuneCmd.Flags().StringVar(&tuneSession, "session", "", "Session preset file (TOML)")
	rootCmd.AddCommand(tuneCmd)
}

func runTune(cmd *cobra.Command, args []string) error {
	start := time.Now()
	logger := newLogger(tuneFormat)

	text := strings.Join(args, " ")
	rounds := tuneRounds

	var preset *tuner.SessionPreset
	if tuneSession != "" {
		var err error
		preset, err = tuner.LoadSessionPreset(tuneSession)
		if err != nil {
			return err
		}
		if text == "" {
			text = preset.Text
		}
		if !cmd.Flags().Changed("rounds") {
			rounds = preset.Rounds
		}
	}
	if text == "" {
		return fmt.Errorf("no input text: pass text as an argument or use --session")
	}

	root := mustGetRoot()
	cfg := loadConfigOrDefault(root, logger)

	if preset != nil {
		tcfg := preset.ApplyTo(tuner.Config{
			InitialStep:  cfg.Tuning.InitialStep,
			MinStep:      cfg.Tuning.MinStep,
			ShrinkFactor: cfg.Tuning.ShrinkFactor,
			Patience:     cfg.Tuning.Patience,
			Bounds:       cfg.Tuning.Bounds,
		})
		cfg.Tuning.InitialStep = tcfg.InitialStep
		cfg.Tuning.MinStep = tcfg.MinStep
		cfg.Tuning.Patience = tcfg.Patience
	}

	db, err := storage.Open(root, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	eng := engine.New(cfg, db, logger)
	if preset != nil && preset.Initial != nil {
		if err := preset.Initial.Validate(cfg.Tuning.Bounds); err != nil {
			return err
		}
		eng.SetParameters(*preset.Initial)
	}

	result, err := eng.Session(newContext(), text, rounds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running session: %v\n", err)
		os.Exit(1)
	}

	output, err := FormatResponse(&SessionResponseCLI{Session: result}, OutputFormat(tuneFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	if tuneFormat == "human" {
		fmt.Printf("(Session took %dms)\n", time.Since(start).Milliseconds())
	}
	return nil
}
