package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rrf/internal/config"
	"rrf/internal/logging"
)

var (
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize rrf configuration",
	Long:  "Creates a .rrf/ directory with default configuration in the current directory",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force reinitialization (removes existing .rrf directory)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.InfoLevel,
	})

	root, err := getRoot()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	rrfDir := filepath.Join(root, ".rrf")
	configPath := filepath.Join(rrfDir, "config.json")
	if _, statErr := os.Stat(rrfDir); statErr == nil {
		if !initForce {
			// Idempotent behavior: already initialized is success
			fmt.Println("rrf already initialized.")
			fmt.Printf("Configuration at: %s\n", configPath)
			fmt.Println("\nRun 'rrf init --force' to reinitialize.")
			return nil
		}
		if removeErr := os.RemoveAll(rrfDir); removeErr != nil {
			return fmt.Errorf("failed to remove existing .rrf directory: %w", removeErr)
		}
		logger.Info("Removed existing .rrf directory", nil)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.Info("rrf initialized successfully", map[string]interface{}{
		"config_path": configPath,
	})

	fmt.Println("rrf initialized successfully!")
	fmt.Printf("Configuration written to: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'rrf analyze \"some text\"' to record a first run")
	fmt.Println("  2. Run 'rrf status' to see engine status")

	return nil
}
