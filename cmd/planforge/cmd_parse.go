// Package main implements the planforge CLI commands.
// This file handles parsing plans and reporting review progress.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"planforge/cmd/planforge/ui"
	"planforge/internal/approval"
	"planforge/internal/config"
	"planforge/internal/logging"
	"planforge/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	sourceFlag    string
	jsonOutput    bool
	saveDraft     bool
	statsFromFile string
)

// parseCmd parses a markdown plan into the approval tree
var parseCmd = &cobra.Command{
	Use:   "parse <plan.md>",
	Short: "Parse a markdown plan into a reviewable section tree",
	Long: `Parses a markdown plan into the two-level Phase/Aspect/Task tree.

H2 headings become aspects (phase headings qualify their titles), H3
headings become aspects or merge into a fresh phase aspect, and list items
or H4 headings become tasks. All sections start in pending status.

Example:
  planforge parse plan.md --source strategist --save-draft`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

// statsCmd reports review progress for the saved draft
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show review progress for the saved draft",
	Long: `Summarizes approval status over the saved draft: counts per status
plus how many sections were edited or renamed during review.

Use --file to summarize a freshly parsed plan instead of the draft.`,
	RunE: runStats,
}

// initCmd initializes planforge in the current workspace
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize planforge in the current workspace",
	Long: `Creates the .planforge/ directory with a default config.yaml and an
empty session database.`,
	RunE: runInit,
}

func init() {
	parseCmd.Flags().StringVar(&sourceFlag, "source", "", "Section source tag: visionary, strategist, patent (default: front matter or strategist)")
	parseCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the parsed tree as JSON")
	parseCmd.Flags().BoolVar(&saveDraft, "save-draft", false, "Save the parsed tree as the review draft")

	statsCmd.Flags().StringVar(&statsFromFile, "file", "", "Summarize a plan file instead of the saved draft")
}

// parseSource validates the --source flag.
func parseSource(raw string) (approval.Source, error) {
	switch approval.Source(raw) {
	case "", approval.SourceStrategist:
		return approval.SourceStrategist, nil
	case approval.SourceVisionary:
		return approval.SourceVisionary, nil
	case approval.SourcePatent:
		return approval.SourcePatent, nil
	default:
		return "", fmt.Errorf("unknown source %q (want visionary, strategist, or patent)", raw)
	}
}

// openStore opens the session store configured for the workspace.
func openStore() (*store.LocalStore, error) {
	ws := resolveWorkspace()
	if cfg == nil {
		var err error
		cfg, err = config.LoadFromWorkspace(ws)
		if err != nil {
			return nil, err
		}
	}
	return store.NewLocalStore(cfg.DatabasePath(ws))
}

func scope() store.Scope {
	return store.Scope{OwnerID: ownerID, ProjectID: projectID}
}

func runParse(cmd *cobra.Command, args []string) error {
	path := args[0]
	source, err := parseSource(sourceFlag)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read plan: %w", err)
	}

	aspects := approval.Parse(string(data), source)
	logger.Info("Parsed plan",
		zap.String("file", path),
		zap.Int("aspects", len(aspects)))

	if saveDraft {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		st, err := openStore()
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer st.Close()

		if err := st.SaveDraft(ctx, scope(), source, aspects); err != nil {
			return err
		}
		fmt.Printf("Draft saved: %d aspects from %s\n", len(aspects), filepath.Base(path))
	}

	if jsonOutput {
		payload, err := approval.Marshal(aspects)
		if err != nil {
			return fmt.Errorf("failed to encode tree: %w", err)
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, payload, "", "  "); err != nil {
			return err
		}
		fmt.Println(pretty.String())
		return nil
	}

	for i := range aspects {
		a := &aspects[i]
		fmt.Println(ui.TitleStyle.Render(a.Title))
		for j := range a.Tasks {
			fmt.Printf("  - %s\n", a.Tasks[j].Title)
		}
	}
	fmt.Printf("\n%d aspects, %d tasks\n", len(aspects), countTasks(aspects))
	return nil
}

func countTasks(aspects []approval.Aspect) int {
	n := 0
	for i := range aspects {
		n += len(aspects[i].Tasks)
	}
	return n
}

func runStats(cmd *cobra.Command, args []string) error {
	var aspects []approval.Aspect

	if statsFromFile != "" {
		data, err := os.ReadFile(statsFromFile)
		if err != nil {
			return fmt.Errorf("failed to read plan: %w", err)
		}
		aspects = approval.Parse(string(data), approval.SourceStrategist)
	} else {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		st, err := openStore()
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer st.Close()

		aspects, err = loadDraftAnySource(ctx, st)
		if err != nil {
			return err
		}
		if aspects == nil {
			fmt.Println("No saved draft. Run: planforge parse <plan.md> --save-draft")
			return nil
		}
	}

	stats := approval.Summarize(aspects)
	logging.CLIDebug("Stats: %+v", stats)
	fmt.Print(ui.RenderStats(stats))
	if !stats.Reviewed() {
		fmt.Printf("%d sections still pending review\n", stats.Total-stats.Approved-stats.Rejected-stats.Rework)
	}
	return nil
}

// loadDraftAnySource tries each source tag in a fixed order.
func loadDraftAnySource(ctx context.Context, st *store.LocalStore) ([]approval.Aspect, error) {
	for _, src := range []approval.Source{approval.SourceStrategist, approval.SourceVisionary, approval.SourcePatent} {
		aspects, err := st.LoadDraft(ctx, scope(), src)
		if err != nil {
			return nil, err
		}
		if aspects != nil {
			return aspects, nil
		}
	}
	return nil, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	cfgPath := filepath.Join(ws, ".planforge", "config.yaml")

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Already initialized: %s\n", cfgPath)
		return nil
	}

	defaults := config.DefaultConfig()
	if err := defaults.Save(cfgPath); err != nil {
		return err
	}

	st, err := store.NewLocalStore(defaults.DatabasePath(ws))
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	st.Close()

	logging.Boot("Initialized workspace: %s", ws)
	fmt.Printf("Initialized planforge in %s\n", filepath.Join(ws, ".planforge"))
	return nil
}
