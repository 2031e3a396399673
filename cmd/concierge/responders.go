package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var respondersCmd = &cobra.Command{
	Use:   "responders",
	Short: "List the registered responders",
	Long: `List the responders of the configured catalog in registration order,
with their priority, specialties, trigger keywords and tools.

The built-in catalog is used unless catalog.path points at a YAML file.`,
	RunE: runResponders,
}

func runResponders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	reg, defaultID, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	for i, d := range reg.All() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("%s  %s", bold.Sprint(d.ID), d.Name)
		if d.ID == defaultID {
			title += color.CyanString("  (default)")
		}
		fmt.Fprintln(w, title)
		fmt.Fprintf(w, "  priority     %d\n", d.Priority)
		fmt.Fprintf(w, "  specialties  %s\n", listOrNone(d.Specialties))
		fmt.Fprintf(w, "  triggers     %s\n", listOrNone(reg.Triggers(d.ID)))
		fmt.Fprintf(w, "  tools        %s\n", listOrNone(d.Tools))
		if d.Provider != "" {
			fmt.Fprintf(w, "  provider     %s\n", d.Provider)
		}
	}
	fmt.Fprintln(w, dim.Sprintf("\n%d responders", reg.Len()))
	return nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
