// This file handles live re-parsing of a plan file under edit.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"planforge/cmd/planforge/ui"
	"planforge/internal/approval"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// watchCmd re-parses a plan file on every save
var watchCmd = &cobra.Command{
	Use:   "watch <plan.md>",
	Short: "Re-parse a plan file on every save",
	Long: `Watches a markdown plan file and prints the parsed tree summary each
time the file changes. Useful while iterating on a plan before review.

Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	source, err := parseSource(sourceFlag)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot watch %s: %w", path, err)
	}

	watcher, err := approval.NewWatcher(path, source, func(aspects []approval.Aspect) {
		fmt.Printf("\n%s changed:\n", path)
		for i := range aspects {
			fmt.Println(ui.TitleStyle.Render("  " + aspects[i].Title))
			for j := range aspects[i].Tasks {
				fmt.Printf("    - %s\n", aspects[i].Tasks[j].Title)
			}
		}
		fmt.Printf("  %d aspects, %d tasks\n", len(aspects), countTasks(aspects))
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Stop()

	logger.Info("Watching plan file", zap.String("path", path))
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", path)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-cmd.Context().Done():
	}
	return nil
}

func init() {
	watchCmd.Flags().StringVar(&sourceFlag, "source", "", "Section source tag: visionary, strategist, patent")
}
