package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize an inquest workspace",
		Long:  "Initialize an inquest workspace by creating the .inquest directory and installing a default config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir, err := os.Getwd()
			if err != nil {
				return err
			}

			inquestDir := filepath.Join(workDir, ".inquest")
			log.Info().Str("dir", inquestDir).Msg("creating inquest directory")
			if err := os.MkdirAll(inquestDir, 0o755); err != nil {
				return fmt.Errorf("create inquest dir: %w", err)
			}

			configPath := filepath.Join(inquestDir, "config.json")
			if _, err := os.Stat(configPath); err == nil {
				log.Info().Msg("config.json already exists, skipping")
			} else {
				log.Info().Str("path", configPath).Msg("installing default config")
				defaultConfig := map[string]any{
					"constraints": map[string]any{
						"max_depth":      3,
						"max_time":       "5m",
						"max_cost":       1.0,
						"max_goals":      25,
						"max_concurrent": 4,
					},
					"oracle": map[string]any{
						"model": "gemini-2.5-flash",
					},
					"providers": map[string]any{
						"tavily":     map[string]any{"enabled": true, "depth": "basic"},
						"brave":      map[string]any{"enabled": true},
						"duckduckgo": map[string]any{"enabled": true},
					},
					"retention": map[string]any{
						"keep_last": 20,
					},
				}
				data, err := json.MarshalIndent(defaultConfig, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal default config: %w", err)
				}
				if err := os.WriteFile(configPath, data, 0o644); err != nil {
					return fmt.Errorf("write default config: %w", err)
				}
			}

			fmt.Println("inquest initialized successfully")
			fmt.Println("set GEMINI_API_KEY (required), TAVILY_API_KEY and BRAVE_API_KEY (optional) in the environment or a .env file")
			return nil
		},
	}
}
