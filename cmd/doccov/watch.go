package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"doccov/internal/coverage"
	"doccov/internal/session"
	"doccov/internal/watcher"
)

var (
	watchInterval time.Duration
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Recompute coverage whenever Python files change",
	Long: `Poll the tree for created, modified and deleted .py files and print the
coverage after each batch of changes. Stop with Ctrl-C.

Examples:
  doccov watch
  doccov watch --interval=2s src/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Second, "Polling interval")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before rescanning")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	target, err := a.resolveTarget(args)
	if err != nil {
		return err
	}

	store, err := a.openHistory(false)
	if err != nil {
		a.logger.Warn("Parse cache unavailable", "error", err.Error())
		store = nil
	}
	if store != nil {
		defer store.Close()
	}
	an, err := a.newAnalyzer(store)
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	state := session.New()
	rescan := func(changed int) {
		result, err := an.Scan(ctx, target)
		if err != nil {
			return
		}
		previous := state.Coverage()
		state.SetScan(result)
		fmt.Println(watchLine(time.Now(), previous, state.Coverage(), changed))
	}
	rescan(0)

	w := watcher.New(target, watcher.Config{
		Debounce:     watchDebounce,
		PollInterval: watchInterval,
		Exclude:      a.cfg.Scan.Exclude,
	}, a.logger, func(events []watcher.Event) {
		for _, e := range events {
			a.logger.Debug("File changed", "path", e.Path, "event", e.Type.String())
		}
		rescan(len(events))
	})
	return w.Run(ctx)
}

// watchLine summarizes one rescan. previous is nil for the first scan.
func watchLine(now time.Time, previous, current *coverage.Report, changed int) string {
	agg := current.Aggregate
	line := fmt.Sprintf("%s coverage %s%% (%d/%d)",
		now.Format("15:04:05"), agg.CoveragePercent, agg.DocumentedCount, agg.TotalFunctions)
	if previous != nil {
		delta := coverage.Round1(float64(agg.CoveragePercent) - float64(previous.Aggregate.CoveragePercent))
		line += fmt.Sprintf(" %+.1f", delta)
	}
	if changed > 0 {
		line += fmt.Sprintf(", %d file(s) changed", changed)
	}
	if !agg.MeetsThreshold {
		line += " [below threshold]"
	}
	return line
}
