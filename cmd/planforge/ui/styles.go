// Package ui provides the terminal styling for planforge command output.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"planforge/internal/approval"
	"planforge/internal/reconcile"
)

// Semantic colors
var (
	Success     = lipgloss.Color("#8BC34A") // Lime Green
	Warning     = lipgloss.Color("#FFC107") // Yellow
	Destructive = lipgloss.Color("#e53935") // Red
	Info        = lipgloss.Color("#2196F3") // Blue
	Muted       = lipgloss.Color("#7d8590")
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true)
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(Info)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)
	CreateStyle  = lipgloss.NewStyle().Foreground(Success)
	RenameStyle  = lipgloss.NewStyle().Foreground(Warning)
	KeepStyle    = lipgloss.NewStyle().Foreground(Muted)
	ArchiveStyle = lipgloss.NewStyle().Foreground(Destructive)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(Destructive)
)

func actionStyle(action reconcile.Action) lipgloss.Style {
	switch action {
	case reconcile.ActionCreate:
		return CreateStyle
	case reconcile.ActionRename:
		return RenameStyle
	case reconcile.ActionArchive:
		return ArchiveStyle
	default:
		return KeepStyle
	}
}

// RenderPlan renders a sync plan as an indented action list.
func RenderPlan(plan *reconcile.Plan) string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("Sync Plan"))
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render(strings.Repeat("─", 50)))
	b.WriteString("\n")

	if plan.Empty() {
		b.WriteString(MutedStyle.Render("  (nothing to do)"))
		b.WriteString("\n")
		return b.String()
	}

	for _, item := range plan.Items {
		renderItem(&b, item, 0)
	}
	for _, item := range plan.ArchiveItems {
		renderItem(&b, item, 0)
	}

	b.WriteString(MutedStyle.Render(strings.Repeat("─", 50)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n",
		CreateStyle.Render(fmt.Sprintf("create: %d", plan.Stats.Create)),
		RenameStyle.Render(fmt.Sprintf("rename: %d", plan.Stats.Rename)),
		KeepStyle.Render(fmt.Sprintf("keep: %d", plan.Stats.Keep)),
		ArchiveStyle.Render(fmt.Sprintf("archive: %d", plan.Stats.Archive)),
	))
	return b.String()
}

func renderItem(b *strings.Builder, item reconcile.Item, depth int) {
	indent := strings.Repeat("  ", depth+1)
	line := fmt.Sprintf("%s[%s] %s", indent, item.Action, item.Title)
	if item.Action == reconcile.ActionRename && item.ExistingTitle != "" {
		line += MutedStyle.Render(fmt.Sprintf(" (was %q)", item.ExistingTitle))
	}
	b.WriteString(actionStyle(item.Action).Render(line))
	b.WriteString("\n")
	for _, child := range item.Children {
		renderItem(b, child, depth+1)
	}
}

// RenderStats renders approval statistics for a parsed or reviewed forest.
func RenderStats(stats approval.Stats) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Review Progress"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s\n", CreateStyle.Render(fmt.Sprintf("approved: %d", stats.Approved))))
	b.WriteString(fmt.Sprintf("  %s\n", ArchiveStyle.Render(fmt.Sprintf("rejected: %d", stats.Rejected))))
	b.WriteString(fmt.Sprintf("  %s\n", RenameStyle.Render(fmt.Sprintf("rework:   %d", stats.Rework))))
	b.WriteString(fmt.Sprintf("  total:    %d\n", stats.Total))
	if stats.Edited > 0 || stats.Renamed > 0 {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("  edited: %d  renamed: %d", stats.Edited, stats.Renamed)))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderOutcomes renders per-operation apply results.
func RenderOutcomes(result *reconcile.ApplyResult) string {
	var b strings.Builder
	for _, o := range result.Items {
		if o.Failed() {
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("  ✗ [%s] %s: %s", o.Action, o.Title, o.Err)))
		} else {
			b.WriteString(actionStyle(o.Action).Render(fmt.Sprintf("  ✓ [%s] %s", o.Action, o.Title)))
		}
		b.WriteString("\n")
	}
	failed := result.Failed()
	if len(failed) > 0 {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("%d of %d operations failed", len(failed), len(result.Items))))
		b.WriteString("\n")
	} else {
		b.WriteString(CreateStyle.Render(fmt.Sprintf("All %d operations applied", len(result.Items))))
		b.WriteString("\n")
	}
	return b.String()
}
