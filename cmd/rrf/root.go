package main

import (
	"github.com/spf13/cobra"

	"rrf/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "rrf",
	Short: "rrf - Resonance Response Field engine",
	Long: `rrf maps input text onto a 12-node icosahedral field, evolves the field
under a logarithmic-potential energy operator, and measures the spectral
coherence of the resulting signal. A built-in tuner adjusts the field
parameters between runs to drive coherence upward.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("rrf version {{.Version}}\n")
}
