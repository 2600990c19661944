package main

import (
	"fmt"
	"os"
	"time"

	"planforge/internal/config"
	"planforge/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose   bool
	workspace string
	ownerID   string
	projectID string
	timeout   time.Duration

	// Logger
	logger *zap.Logger

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "planforge",
	Short: "planforge - markdown plan review and session sync",
	Long: `planforge turns AI-generated markdown plans into a reviewable
Phase -> Aspect -> Task tree, then reconciles the reviewed tree against the
persisted session hierarchy.

Typical flow:
  planforge parse plan.md --save-draft   # parse and stash for review
  planforge stats                        # review progress
  planforge preview                      # dry-run the sync plan
  planforge apply                        # apply it`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := resolveWorkspace()
		cfg, err = config.LoadFromWorkspace(ws)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := logging.Initialize(ws); err != nil {
			logger.Warn("File logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	ws, err := os.Getwd()
	if err != nil {
		return "."
	}
	return ws
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "local", "Owner id scoping the session tree")
	rootCmd.PersistentFlags().StringVar(&projectID, "project", "default", "Project id scoping the session tree")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
