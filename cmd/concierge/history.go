package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/concierge/pkg/models"
)

var (
	historyList  bool
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show persisted sessions and messages",
	Long: `Print the message log of a session from the configured store.

With --list, shows the most recently active sessions instead.
The memory store keeps nothing between runs; configure store.driver as
sqlite, mysql or redis to keep history.

Examples:
  concierge history -s acme
  concierge history --list --limit 5`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyList, "list", false, "List recent sessions")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum sessions to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	if historyList {
		sessions, err := store.ListSessions(ctx, historyLimit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if historyJSON {
			return json.NewEncoder(w).Encode(sessions)
		}
		if len(sessions) == 0 {
			fmt.Fprintln(w, "No sessions recorded.")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintf(w, "%-24s %4d messages  last %-12s %s ago\n",
				s.SessionID, s.MessageCount, s.CurrentResponderID, formatDuration(time.Since(s.LastActivity)))
		}
		return nil
	}

	msgs, err := store.Messages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("read session %s: %w", sessionID, err)
	}
	if historyJSON {
		return json.NewEncoder(w).Encode(msgs)
	}
	if len(msgs) == 0 {
		fmt.Fprintf(w, "No messages for session %q.\n", sessionID)
		return nil
	}
	for _, m := range msgs {
		printMessage(w, m)
	}
	return nil
}

func printMessage(w io.Writer, m models.Message) {
	ts := color.New(color.Faint).Sprint(m.Timestamp.Local().Format("2006-01-02 15:04:05"))
	who := color.New(color.FgBlue, color.Bold).Sprint("you")
	if m.Role == models.RoleAssistant {
		c := color.New(color.FgGreen, color.Bold)
		if m.Metadata != nil && m.Metadata.Error != "" {
			c = color.New(color.FgYellow, color.Bold)
		}
		who = c.Sprint(m.AgentID)
	}
	fmt.Fprintf(w, "%s %s\n%s\n\n", ts, who, m.Content)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd", int(d.Hours())/24)
}
