package main

import (
	"fmt"
	"log/slog"

	"github.com/fwojciec/calregs"
	"github.com/fwojciec/calregs/crawl"
)

// progress returns a callback that prints the events of command to stdout,
// logs failures and counts every event.
func (deps *Dependencies) progress(command string) crawl.ProgressFunc {
	return func(event crawl.ProgressEvent) {
		if deps.Metrics != nil {
			deps.Metrics.ObserveEvent(command, event.Type.String())
		}

		switch event.Type {
		case crawl.ProgressStarted:
			if command == "discover" {
				fmt.Fprintf(deps.Stdout, "  Starting at %s (%d known sections)\n", event.URL, event.Discovered)
				return
			}
			fmt.Fprintf(deps.Stdout, "  Found %d URLs to %s\n", event.Total, command)
		case crawl.ProgressCompleted:
			if command == "discover" {
				fmt.Fprintf(deps.Stdout, "  [%d/%d] %d sections  %s\n",
					event.Completed, event.Total, event.Discovered, crawl.DisplayURL(event.URL, 80))
				return
			}
			fmt.Fprintf(deps.Stdout, "  [%d/%d] %s\n", event.Completed, event.Total, crawl.DisplayURL(event.URL, 80))
		case crawl.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "  skip %s: %v\n", event.URL, event.Error)
			deps.log().Warn(command+": failed", "url", event.URL, "error_type", calregs.ErrorType(event.Error), "attempts", event.Attempt)
		case crawl.ProgressRetrying:
			deps.log().Info(command+": retrying", "url", event.URL, "attempt", event.Attempt, "error", event.Error)
		case crawl.ProgressSkipped:
			deps.log().Debug(command+": dropped link", "url", event.URL)
		case crawl.ProgressCheckpoint:
			deps.log().Info(command+": checkpoint", "visited", event.Completed, "discovered", event.Discovered)
		case crawl.ProgressPersistFailed:
			if event.URL == "" {
				fmt.Fprintf(deps.Stderr, "  storage: %v\n", event.Error)
			} else {
				fmt.Fprintf(deps.Stderr, "  not saved %s: %v\n", event.URL, event.Error)
			}
			deps.log().Error(command+": persist failed", "url", event.URL, "error", event.Error)
		case crawl.ProgressFinished:
			// Summary printed by the command
		}
	}
}

// logf adapts the logger to crawl.LogFunc.
func (deps *Dependencies) logf(format string, args ...any) {
	deps.log().Debug(fmt.Sprintf(format, args...))
}

func (deps *Dependencies) log() *slog.Logger {
	if deps.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return deps.Logger
}
