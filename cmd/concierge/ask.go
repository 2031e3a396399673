package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/concierge/internal/orchestrator"
	"github.com/ShayCichocki/concierge/pkg/models"
)

var (
	askJSON     bool
	askMetadata []string
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Process one message and print the reply",
	Long: `Process a single message as one turn of a session and print the reply.

The session is persisted through the configured store, so consecutive
invocations with the same --session continue the same conversation when a
durable store driver is configured.

Examples:
  concierge ask "How much runway do I need before raising a seed round?"
  concierge ask -s acme --meta stage=seed "Which investors fit us?"
  concierge ask --json "Hello"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the reply as JSON")
	askCmd.Flags().StringArrayVar(&askMetadata, "meta", nil, "Profile entry key=value (repeatable)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	meta, err := parseMetadata(askMetadata)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, cfg, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	reply := rt.orch.ProcessMessage(ctx, strings.Join(args, " "), orchestrator.TurnContext{
		SessionID: sessionID,
		UserID:    userID,
		Metadata:  meta,
	})

	if askJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}
	printReply(cmd.OutOrStdout(), reply)
	return nil
}

// parseMetadata turns key=value pairs into a map.
func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q: want key=value", p)
		}
		meta[k] = strings.TrimSpace(v)
	}
	return meta, nil
}

// printReply writes the reply followed by a dimmed metadata line.
func printReply(w io.Writer, r models.Reply) {
	label := color.New(color.FgGreen, color.Bold)
	if r.Degraded() {
		label = color.New(color.FgYellow, color.Bold)
	}
	fmt.Fprintf(w, "%s\n%s\n\n", label.Sprint(r.AgentID), r.Content)

	md := r.Metadata
	parts := []string{
		"stage " + string(md.Stage),
		fmt.Sprintf("complexity %.2f", md.Complexity),
		fmt.Sprintf("%dms", md.ProcessingTimeMs),
	}
	if md.Confidence != nil {
		parts = append(parts, fmt.Sprintf("confidence %.2f", *md.Confidence))
	}
	if md.Provider != "" {
		parts = append(parts, "via "+md.Provider)
	}
	if md.DeepAgent {
		parts = append(parts, fmt.Sprintf("deep %d/%d tasks", md.TasksCompleted, md.TotalTasks))
	}
	if len(md.ToolsUsed) > 0 {
		parts = append(parts, "tools "+strings.Join(md.ToolsUsed, ","))
	}
	if md.IsRepeatedQuery {
		parts = append(parts, "repeated")
	}
	fmt.Fprintln(w, color.New(color.Faint).Sprint(strings.Join(parts, " · ")))
	if md.Error != "" {
		fmt.Fprintln(w, color.YellowString("degraded: %s", md.Error))
	}
}
