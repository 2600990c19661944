// This file handles sync plan preview and application.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"planforge/cmd/planforge/ui"
	"planforge/internal/approval"
	"planforge/internal/reconcile"
	"planforge/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncFromFile  string
	includeRework bool
	keepDraft     bool
	planAsJSON    bool
)

// previewCmd shows the sync plan without writing anything
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the sync plan for the saved draft (dry run)",
	Long: `Computes the reconciliation plan between the reviewed draft and the
persisted session tree without applying it. Safe to run repeatedly.

Approved sections create, rename, or keep sessions; rejected sections
archive their matched session and everything beneath it.`,
	RunE: runPreview,
}

// applyCmd applies the sync plan
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the sync plan for the saved draft",
	Long: `Computes and applies the reconciliation plan. Operations run
sequentially in plan order; a failed operation is reported and skipped,
not rolled back. Exits non-zero if any operation failed.

The draft is deleted after a fully successful apply unless --keep-draft
is set.`,
	RunE: runApply,
}

func init() {
	for _, c := range []*cobra.Command{previewCmd, applyCmd} {
		c.Flags().StringVar(&syncFromFile, "file", "", "Sync a plan file instead of the saved draft (sections must carry statuses via a saved review)")
		c.Flags().BoolVar(&includeRework, "include-rework", false, "Also sync rework-status sections as approved")
	}
	previewCmd.Flags().BoolVar(&planAsJSON, "json", false, "Emit the plan as JSON")
	applyCmd.Flags().BoolVar(&keepDraft, "keep-draft", false, "Keep the draft after a successful apply")
}

func planOptions() reconcile.PlanOptions {
	opts := reconcile.DefaultPlanOptions()
	if includeRework || (cfg != nil && cfg.Sync.SyncRework) {
		opts.SyncStatuses = append(opts.SyncStatuses, approval.StatusRework)
	}
	return opts
}

// loadReviewedForest returns the forest to sync plus the source it came
// from (empty when read from --file).
func loadReviewedForest(ctx context.Context, st *store.LocalStore) ([]approval.Aspect, approval.Source, error) {
	if syncFromFile != "" {
		data, err := os.ReadFile(syncFromFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read plan: %w", err)
		}
		aspects, err := approval.Unmarshal(data)
		if err != nil {
			return nil, "", err
		}
		return aspects, "", nil
	}

	for _, src := range []approval.Source{approval.SourceStrategist, approval.SourceVisionary, approval.SourcePatent} {
		aspects, err := st.LoadDraft(ctx, scope(), src)
		if err != nil {
			return nil, "", err
		}
		if aspects != nil {
			return aspects, src, nil
		}
	}
	return nil, "", nil
}

func buildPlan(ctx context.Context, st *store.LocalStore) (*reconcile.Plan, approval.Source, error) {
	aspects, source, err := loadReviewedForest(ctx, st)
	if err != nil {
		return nil, "", err
	}
	if aspects == nil {
		return nil, "", fmt.Errorf("no saved draft; run: planforge parse <plan.md> --save-draft")
	}

	stats := approval.Summarize(aspects)
	if !stats.Reviewed() {
		logger.Warn("Draft has unreviewed sections; they will not sync",
			zap.Int("total", stats.Total),
			zap.Int("approved", stats.Approved),
			zap.Int("rejected", stats.Rejected))
	}

	planner := reconcile.NewPlanner(st, planOptions())
	plan, err := planner.BuildPlan(ctx, scope(), aspects)
	if err != nil {
		return nil, "", err
	}
	return plan, source, nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Close()

	plan, _, err := buildPlan(ctx, st)
	if err != nil {
		return err
	}

	if planAsJSON {
		return printJSON(plan)
	}
	fmt.Print(ui.RenderPlan(plan))
	if plan.AllKeep() {
		fmt.Println("Everything already in sync.")
	}
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Close()

	plan, source, err := buildPlan(ctx, st)
	if err != nil {
		return err
	}
	if plan.Empty() {
		fmt.Println("Nothing to apply.")
		return nil
	}

	result := reconcile.NewApplier(st).Apply(ctx, scope(), plan)
	if !result.Success {
		return fmt.Errorf("apply failed: %s", result.Error)
	}

	fmt.Print(ui.RenderOutcomes(result))

	if !result.FullyApplied() {
		return fmt.Errorf("%d operations failed; re-run apply to retry", len(result.Failed()))
	}

	if source != "" && !keepDraft {
		if err := st.DeleteDraft(ctx, scope(), source); err != nil {
			logger.Warn("Failed to delete applied draft", zap.Error(err))
		}
	}
	return nil
}
