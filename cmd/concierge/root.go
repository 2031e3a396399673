package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/concierge/internal/tui"
)

var (
	configPath string
	sessionID  string
	userID     string
)

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Conversational assistant for startup funding",
	Long: `Concierge answers questions about startup funding, investors, pitch decks,
grant applications and markets.

Each message is routed to the best-matching specialist responder. Complex
questions are broken into research tasks and answered in one combined reply.
When no language model is reachable every responder still answers with a
static fallback.

With no arguments, starts an interactive chat in the terminal.`,
	SilenceUsage: true,
	RunE:         runChat,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/concierge/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "default", "Session id")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User id")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(respondersCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(signalCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, cfg, runtimeOptions{emitterBuffer: 64, watchSignals: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	program, _ := tui.NewChatProgram(ctx, rt.orch, tui.ChatConfig{
		SessionID: sessionID,
		UserID:    userID,
		Providers: rt.providerNames(),
		Events:    rt.emitter.Events(),
	})
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run chat: %w", err)
	}
	return nil
}
