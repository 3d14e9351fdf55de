// Package cmd holds the ragbase CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "ragbase",
	Short: "ragbase - document ingestion and retrieval service",
	Long: `ragbase ingests uploaded documents into a searchable knowledge base:
text extraction, chunking, embedding, categorization and vector indexing,
with semantic search and grounded answer synthesis on top.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.ragbase/config.yaml)")
}
