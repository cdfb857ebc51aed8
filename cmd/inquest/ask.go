package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/kestrelab/inquest/internal/budget"
	"github.com/kestrelab/inquest/internal/config"
	"github.com/kestrelab/inquest/internal/db"
	"github.com/kestrelab/inquest/internal/decompose"
	"github.com/kestrelab/inquest/internal/evidence"
	"github.com/kestrelab/inquest/internal/executor"
	"github.com/kestrelab/inquest/internal/oracle"
	"github.com/kestrelab/inquest/internal/provider"
	"github.com/kestrelab/inquest/internal/research"
	"github.com/kestrelab/inquest/internal/scheduler"
	"github.com/kestrelab/inquest/internal/synth"
)

func askCmd() *cobra.Command {
	var maxDepth int
	var maxTime time.Duration
	var maxCost float64
	var maxGoals int
	var asJSON bool
	var noSave bool
	cmd := &cobra.Command{
		Use:          "ask <question>",
		Short:        "Research a question recursively and print the findings",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(args[0])
			if question == "" {
				return fmt.Errorf("question must not be empty")
			}

			storeDB, workDir, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			cfg, err := loadConfig(workDir)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-depth") {
				cfg.Constraints.MaxDepth = maxDepth
			}
			if cmd.Flags().Changed("max-time") {
				cfg.Constraints.MaxTime = maxTime
			}
			if cmd.Flags().Changed("max-cost") {
				cfg.Constraints.MaxCost = maxCost
			}
			if cmd.Flags().Changed("max-goals") {
				cfg.Constraints.MaxGoals = maxGoals
			}

			ctx := cmd.Context()
			constraints := cfg.ResearchConstraints()
			tracker := budget.NewTracker(constraints)
			sem := semaphore.NewWeighted(int64(constraints.MaxConcurrent))

			gem, err := oracle.NewGemini(ctx, oracle.GeminiConfig{
				APIKey:            os.Getenv("GEMINI_API_KEY"),
				Model:             cfg.Oracle.Model,
				InputCostPerMTok:  cfg.Oracle.InputCostPerMTok,
				OutputCostPerMTok: cfg.Oracle.OutputCostPerMTok,
			})
			if err != nil {
				return err
			}
			orc := oracle.Limit(gem, sem)

			registry := buildRegistry(cfg)
			evStore := evidence.NewStore()

			var execOpts []executor.Option
			if cfg.Executor.MaxRetries > 0 {
				execOpts = append(execOpts, executor.WithMaxRetries(cfg.Executor.MaxRetries))
			}
			if cfg.Executor.ResultLimit > 0 {
				execOpts = append(execOpts, executor.WithResultLimit(cfg.Executor.ResultLimit))
			}
			exec := executor.New(registry, orc, evStore, tracker, sem, execOpts...)
			decider := decompose.NewController(orc, tracker, 0)
			summarizer := synth.New(orc, tracker)
			sched := scheduler.New(constraints, tracker, evStore, decider, exec, summarizer)

			root := research.Goal{
				Description: question,
				Status:      research.StatusPending,
			}

			runID := uuid.NewString()
			runStore := db.NewStore(storeDB)
			if !noSave {
				if err := runStore.CreateRun(ctx, runID, question); err != nil {
					return err
				}
			}

			log.Info().
				Str("run_id", runID).
				Str("question", question).
				Int("max_depth", constraints.MaxDepth).
				Float64("max_cost", constraints.MaxCost).
				Msg("starting research run")

			result := sched.Run(ctx, root)

			// An atomic root never went through synthesis; give it one so
			// the report always carries prose when there is evidence.
			if result.Synthesis == "" {
				text, confidence, cost := summarizer.Synthesize(ctx, result.Goal, result.Evidence, result.SubResults)
				result.Synthesis = text
				result.Confidence = confidence
				result.Cost += cost
			}

			usage := tracker.Snapshot()
			if !noSave {
				if err := runStore.FinishRun(ctx, runID, result, usage); err != nil {
					return err
				}
			}

			if asJSON {
				return printJSON(cmd, result, usage)
			}
			printReport(cmd, result, usage)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum decomposition depth")
	cmd.Flags().DurationVar(&maxTime, "max-time", 0, "wall-clock budget for the run")
	cmd.Flags().Float64Var(&maxCost, "max-cost", 0, "dollar budget for the run")
	cmd.Flags().IntVar(&maxGoals, "max-goals", 0, "maximum goals to attempt")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result tree as JSON")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the run")
	return cmd
}

func buildRegistry(cfg config.Config) *provider.Registry {
	var providers []provider.Provider
	if cfg.Providers.Tavily.Enabled {
		providers = append(providers, provider.NewTavily(os.Getenv("TAVILY_API_KEY"), cfg.Providers.Tavily.Depth))
	}
	if cfg.Providers.Brave.Enabled {
		providers = append(providers, provider.NewBrave(os.Getenv("BRAVE_API_KEY")))
	}
	if cfg.Providers.DuckDuckGo.Enabled {
		providers = append(providers, provider.NewDuckDuckGo())
	}
	return provider.NewRegistry(providers...)
}

func printJSON(cmd *cobra.Command, result research.GoalResult, usage budget.Usage) error {
	out := struct {
		Result research.GoalResult `json:"result"`
		Usage  budget.Usage        `json:"usage"`
	}{Result: result, Usage: usage}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printReport(cmd *cobra.Command, result research.GoalResult, usage budget.Usage) {
	cmd.Printf("Question:   %s\n", result.Goal.Description)
	cmd.Printf("Status:     %s\n", result.Status)
	cmd.Printf("Confidence: %.2f\n", result.Confidence)
	cmd.Printf("Evidence:   %d items\n", result.EvidenceCount())
	cmd.Printf("Goals:      %d attempted\n", usage.GoalsAttempted)
	cmd.Printf("Cost:       $%.4f\n", usage.CostSpent)
	cmd.Printf("Elapsed:    %s\n", usage.Elapsed.Round(time.Millisecond))
	if result.Reason != "" {
		cmd.Printf("Note:       %s\n", result.Reason)
	}
	cmd.Println()
	if result.Synthesis != "" {
		cmd.Println(result.Synthesis)
	} else {
		cmd.Println("No synthesis produced.")
	}
	printTree(cmd, result, 0)
	printSources(cmd, result)
}

func printSources(cmd *cobra.Command, result research.GoalResult) {
	seen := make(map[string]struct{})
	var sources []research.Evidence
	result.Walk(func(r research.GoalResult) {
		for _, ev := range r.Evidence {
			if ev.URL == "" {
				continue
			}
			if _, ok := seen[ev.URL]; ok {
				continue
			}
			seen[ev.URL] = struct{}{}
			sources = append(sources, ev)
		}
	})
	if len(sources) == 0 {
		return
	}
	cmd.Println("\nSources:")
	for _, ev := range sources {
		cmd.Printf("- [%s] %s %s\n", ev.SourceID, ev.Title, ev.URL)
	}
}

func printTree(cmd *cobra.Command, r research.GoalResult, depth int) {
	if depth > 0 {
		indent := strings.Repeat("  ", depth)
		cmd.Printf("%s- [%s] %s (confidence %.2f, %d evidence)\n",
			indent, r.Status, r.Goal.Description, r.Confidence, len(r.Evidence))
	} else if len(r.SubResults) > 0 {
		cmd.Println("\nGoal tree:")
	}
	for _, sub := range r.SubResults {
		printTree(cmd, sub, depth+1)
	}
}
