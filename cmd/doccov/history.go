package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"doccov/internal/errors"
	"doccov/internal/history"
	"doccov/internal/storage"
)

var (
	historyFormat string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history [path]",
	Short: "Show recorded coverage runs",
	Long: `List coverage runs recorded by "doccov coverage", newest first.
With a path, only runs of that scan target are listed.

Examples:
  doccov history
  doccov history --limit=5 src/
  doccov history show <run-id>
  doccov history compare`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its per-file coverage",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCompareCmd = &cobra.Command{
	Use:   "compare [older-id newer-id]",
	Short: "Compare two runs",
	Long: `Compare two runs file by file. Without ids the two newest runs of the
most recently scanned target are compared.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected no run ids or two, got %d", len(args))
		}
		return nil
	},
	RunE: runHistoryCompare,
}

var historyClearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop cached parse results",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClearCache,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyFormat, "format", "human", "Output format (json, yaml, human)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs (0 for all)")
	historyCmd.AddCommand(historyShowCmd, historyCompareCmd, historyClearCacheCmd)
	rootCmd.AddCommand(historyCmd)
}

// HistoryResponseCLI lists runs without their per-file rows.
type HistoryResponseCLI struct {
	Runs []RunSummaryCLI `json:"runs"`
}

type RunSummaryCLI struct {
	ID              string  `json:"id"`
	Root            string  `json:"root"`
	CreatedAt       string  `json:"created_at"`
	TotalFunctions  int     `json:"total_functions"`
	DocumentedCount int     `json:"documented_count"`
	CoveragePercent float64 `json:"coverage_percent"`
	MeetsThreshold  bool    `json:"meets_threshold"`
}

// withHistory opens the run database for the project and calls fn.
func withHistory(fn func(*app, *history.Store) (interface{}, error)) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := history.Open(a.root, a.cfg.History.Keep, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	resp, err := fn(a, store)
	if err != nil {
		return err
	}
	output, err := FormatResponse(resp, OutputFormat(historyFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withHistory(func(a *app, store *history.Store) (interface{}, error) {
		root := ""
		if len(args) == 1 {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return nil, err
			}
			root = abs
		}
		runs, err := store.List(root, historyLimit)
		if err != nil {
			return nil, err
		}
		return convertHistoryResponse(runs), nil
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withHistory(func(a *app, store *history.Store) (interface{}, error) {
		run, err := store.Get(args[0])
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, errors.Newf(errors.StorageFailed, "no run with id %s", args[0])
		}
		return run, nil
	})
}

func runHistoryCompare(cmd *cobra.Command, args []string) error {
	return withHistory(func(a *app, store *history.Store) (interface{}, error) {
		if len(args) == 2 {
			older, err := loadRun(store, args[0])
			if err != nil {
				return nil, err
			}
			newer, err := loadRun(store, args[1])
			if err != nil {
				return nil, err
			}
			return history.Compare(older, newer), nil
		}

		latest, err := store.List("", 1)
		if err != nil {
			return nil, err
		}
		if len(latest) == 0 {
			return nil, errors.Newf(errors.StorageFailed, "no runs recorded")
		}
		runs, err := store.List(latest[0].Root, 2)
		if err != nil {
			return nil, err
		}
		if len(runs) < 2 {
			return nil, errors.Newf(errors.StorageFailed, "only one run recorded for %s", latest[0].Root)
		}
		newer, err := loadRun(store, runs[0].ID)
		if err != nil {
			return nil, err
		}
		older, err := loadRun(store, runs[1].ID)
		if err != nil {
			return nil, err
		}
		return history.Compare(older, newer), nil
	})
}

func runHistoryClearCache(cmd *cobra.Command, args []string) error {
	return withHistory(func(a *app, store *history.Store) (interface{}, error) {
		n, err := store.ClearCache()
		if err != nil {
			return nil, err
		}
		a.logger.Info("Parse cache cleared", "entries", n)
		return map[string]int64{"removed": n}, nil
	})
}

func loadRun(store *history.Store, id string) (*storage.Run, error) {
	run, err := store.Get(id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, errors.Newf(errors.StorageFailed, "no run with id %s", id)
	}
	return run, nil
}

func convertHistoryResponse(runs []*storage.Run) *HistoryResponseCLI {
	resp := &HistoryResponseCLI{Runs: make([]RunSummaryCLI, 0, len(runs))}
	for _, r := range runs {
		resp.Runs = append(resp.Runs, RunSummaryCLI{
			ID:              r.ID,
			Root:            r.Root,
			CreatedAt:       r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			TotalFunctions:  r.TotalFunctions,
			DocumentedCount: r.DocumentedCount,
			CoveragePercent: r.CoveragePercent,
			MeetsThreshold:  r.MeetsThreshold,
		})
	}
	return resp
}
