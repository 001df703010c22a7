package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*SynthOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{SynthOptions: &SynthOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "watch <specs-dir>",
		Short: "Re-synthesize joins when their CUE files change",
		Long: `Synthesize every join in specs-dir, then watch the directory and
synthesize again whenever a .cue file is created, written, removed or
renamed. Bursts of changes are batched by --debounce.

Runs until interrupted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runWatch(ctx, opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "quiet period before re-synthesizing")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the JSON report to this file after each round")
	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite run cache")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "maximum concurrent syntheses (0: unlimited)")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWatch, fmt.Sprintf("creating watcher: %v", err))
	}
	defer watcher.Close()

	if err := watcher.Add(specsDir); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("watching %s: %v", specsDir, err))
	}

	runner, closeRunner, err := newJoinRunner(opts.SynthOptions, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}
	defer closeRunner()

	logger := opts.Logger(cmd.ErrOrStderr())
	round := func(reason string) {
		logger.Info("synthesizing", "dir", specsDir, "reason", reason)
		// Failures were already reported by synthRound.
		_ = synthRound(ctx, opts.SynthOptions, specsDir, runner, formatter)
		if !formatter.JSON() {
			fmt.Fprintf(formatter.Writer, "watching %s\n", specsDir)
		}
	}
	round("start")

	var (
		pending []string
		timer   *time.Timer
		timerC  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".cue" || event.Op == fsnotify.Chmod {
				continue
			}
			pending = append(pending, filepath.Base(event.Name))
			if timer == nil {
				timer = time.NewTimer(opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(opts.Debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			changed := dedupe(pending)
			pending = pending[:0]
			if !formatter.JSON() {
				fmt.Fprintf(formatter.Writer, "\nchanged: %v\n", changed)
			}
			round("change")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

// dedupe returns names without repeats, keeping first-seen order.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
