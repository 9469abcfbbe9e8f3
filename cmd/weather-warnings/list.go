package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/i474232898/weather-warnings/internal/config"
	"github.com/i474232898/weather-warnings/internal/observability"
	"github.com/i474232898/weather-warnings/internal/store"
	"github.com/i474232898/weather-warnings/internal/warnings"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Faint(true)

	severityColors = map[warnings.Severity]lipgloss.Color{
		warnings.SeverityMinor:    lipgloss.Color("11"),
		warnings.SeverityModerate: lipgloss.Color("208"),
		warnings.SeveritySevere:   lipgloss.Color("9"),
		warnings.SeverityExtreme:  lipgloss.Color("13"),
	}
)

func newListCmd() *cobra.Command {
	var regions []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Fetch the feed once and print the active alerts per region",
		Example: `  weather-warnings list --region 2102 --region 3000
  REGION_IDS=2102 weather-warnings list`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(regions) > 0 {
				cfg.Regions = cfg.Regions[:0]
				cfg.RegionErrors = nil
				for _, raw := range regions {
					id, err := config.ParseRegionID(raw)
					if err != nil {
						return err
					}
					cfg.Regions = append(cfg.Regions, config.Region{ID: id})
				}
			}
			if err := cfg.RequireRegions(); err != nil {
				return err
			}

			// Logs go to stderr so stdout stays readable.
			logger, err := observability.NewLogger("warn", "console", os.Stderr)
			if err != nil {
				return err
			}

			cache := newCache(cfg, logger, observability.NewMetrics())
			states := store.NewStateStore()
			views := attachRegions(cfg, cache, states, logger)
			defer detachAll(views)

			if _, err := cache.Refresh(cmd.Context()); err != nil {
				return err
			}
			return renderStates(cmd.OutOrStdout(), states.List())
		},
	}

	cmd.Flags().StringSliceVarP(&regions, "region", "r", nil, "region id to show (repeatable, overrides REGION_IDS)")
	return cmd
}

func renderStates(w io.Writer, states []warnings.RegionState) error {
	blocks := make([]string, 0, len(states))
	for _, s := range states {
		blocks = append(blocks, renderRegion(s))
	}
	_, err := fmt.Fprintln(w, strings.Join(blocks, "\n"))
	return err
}

func renderRegion(state warnings.RegionState) string {
	var b strings.Builder

	header := fmt.Sprintf("%d active", state.State)
	if state.Name != state.RegionID.String() {
		header = fmt.Sprintf("%s, %s", state.RegionID, header)
	}
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render(state.Name), mutedStyle.Render("("+header+")"))

	if state.State == 0 {
		b.WriteString(mutedStyle.Render("  no active warnings") + "\n")
		return b.String()
	}

	for _, e := range state.Attributes.Events {
		fmt.Fprintf(&b, "  - %s [%s] %s\n", e.Name, severityStyle(e.Severity).Render(e.Severity.String()), formatPeriod(e.Start, e.End))
		if desc := strings.TrimSpace(e.Description); desc != "" {
			for _, line := range strings.Split(desc, "\n") {
				b.WriteString("      " + strings.TrimSpace(line) + "\n")
			}
		}
	}
	return b.String()
}

func severityStyle(s warnings.Severity) lipgloss.Style {
	if c, ok := severityColors[s]; ok {
		return lipgloss.NewStyle().Foreground(c).Bold(s >= warnings.SeveritySevere)
	}
	return mutedStyle
}

func formatPeriod(start time.Time, end *time.Time) string {
	const layout = "2006-01-02 15:04 MST"
	if end == nil {
		return "from " + start.Format(layout) + " until further notice"
	}
	return start.Format(layout) + " to " + end.Format(layout)
}
