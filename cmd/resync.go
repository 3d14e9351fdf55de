package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragbase/ragbase/internal/app"
)

var resyncCmd = &cobra.Command{
	Use:   "resync <project-id>",
	Short: "Rebuild a project's vector index from persisted chunk records",
	Long: `Clears the project's vector collection and re-adds every ingested
document's chunks from the relational store. Stored embeddings are reused
when intact; otherwise vectors are recomputed. Safe to run repeatedly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResync(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(resyncCmd)
}

func runResync(ctx context.Context, projectID string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	records, err := a.Documents.ResyncRecords(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading chunk records: %w", err)
	}

	docs, chunks, err := a.Engine.Resync(ctx, projectID, records)
	if err != nil {
		return err
	}

	fmt.Printf("Resynced project %s: %d documents, %d chunks\n", projectID, docs, chunks)
	return nil
}
