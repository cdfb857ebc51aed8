package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kestrelab/inquest/internal/db"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage saved research runs",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsPruneCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			storeDB, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			records, err := db.NewStore(storeDB).ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				cmd.Println("no saved runs")
				return nil
			}
			for _, r := range records {
				question := r.Question
				if len(question) > 60 {
					question = question[:57] + "..."
				}
				cmd.Printf("%s  %s  %-12s  conf=%.2f  $%.4f  goals=%d  %s\n",
					r.RunID[:8], r.CreatedAt, r.Status, r.Confidence, r.CostSpent, r.GoalsAttempted, question)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

func runsPruneCmd() *cobra.Command {
	var keepLast int
	var keepDays int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune old runs from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			storeDB, workDir, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			cfg, err := loadConfig(workDir)
			if err != nil {
				return err
			}

			last, days := keepLast, keepDays
			if last <= 0 && days <= 0 {
				last, days = cfg.Retention.KeepLast, cfg.Retention.KeepDays
			}
			if last <= 0 && days <= 0 {
				return fmt.Errorf("set --keep-last or --keep-days (or configure retention in .inquest/config.json)")
			}

			deleted, err := db.NewStore(storeDB).PruneRuns(cmd.Context(), last, days)
			if err != nil {
				return err
			}
			log.Info().Int("deleted", deleted).Msg("pruned runs")
			return nil
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep the newest N runs")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep runs newer than N days")
	return cmd
}
