package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/concierge/internal/complexity"
	"github.com/ShayCichocki/concierge/internal/orchestrator"
	"github.com/ShayCichocki/concierge/internal/selector"
)

var routeJSON bool

var routeCmd = &cobra.Command{
	Use:   "route <message>",
	Short: "Explain how a message would be routed",
	Long: `Score a message against every responder and analyze its complexity
without calling a language model.

Shows each candidate's score breakdown (priority, specialties, triggers,
mentions), the selected responder and whether the message would take the
deep path.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "Print the explanation as JSON")
}

func runRoute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	reg, defaultID, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	orch, err := orchestrator.New(orchestrator.RequiredConfig{Registry: reg},
		orchestrator.WithDefaultResponder(defaultID))
	if err != nil {
		return err
	}

	sel, analysis := orch.Explain(sessionID, strings.Join(args, " "))
	if routeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Selection selector.Selection  `json:"selection"`
			Analysis  complexity.Analysis `json:"analysis"`
			Deep      bool                `json:"deep"`
		}{sel, analysis, analysis.Deep()})
	}
	printRoute(cmd.OutOrStdout(), sel, analysis)
	return nil
}

func printRoute(w io.Writer, sel selector.Selection, a complexity.Analysis) {
	bold := color.New(color.Bold)

	fmt.Fprintf(w, "%s %s", bold.Sprint("Responder:"), color.GreenString(sel.ResponderID))
	if sel.Fallback {
		fmt.Fprint(w, color.YellowString(" (default, no responder accepted the message)"))
	}
	fmt.Fprintf(w, "  confidence %.2f\n\n", sel.Confidence)

	if len(sel.Candidates) > 0 {
		fmt.Fprintln(w, bold.Sprint("Candidates:"))
		fmt.Fprintf(w, "  %-14s %5s %8s %9s %10s %7s %7s\n", "ID", "TOTAL", "PRIORITY", "SPECIALTY", "CONTINUITY", "MENTION", "TRIGGER")
		for _, c := range sel.Candidates {
			b := c.Breakdown
			fmt.Fprintf(w, "  %-14s %5d %8d %9d %10d %7d %7d\n",
				c.ID, c.Score, b.Priority, b.Specialty, b.Continuity, b.Mention, b.Trigger)
		}
		fmt.Fprintln(w)
	}

	path := "simple"
	if a.Deep() {
		path = color.CyanString("deep")
	}
	fmt.Fprintf(w, "%s %.2f (%s path, threshold %.1f)\n", bold.Sprint("Complexity:"), a.Score, path, complexity.DeepThreshold)
	for _, f := range a.Factors {
		fmt.Fprintf(w, "  %-12s +%.2f  %s\n", f.Name, f.Weight, f.Detail)
	}
}
