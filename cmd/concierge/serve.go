package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/concierge/internal/server"
	"github.com/ShayCichocki/concierge/internal/signals"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the turn entry point and diagnostics over HTTP.

Endpoints:
  POST /v1/messages                 process one turn
  GET  /v1/stats                    aggregate statistics
  GET  /v1/responders               registered responders
  GET  /v1/sessions                 persisted sessions
  GET  /v1/sessions/{id}/messages   a session's message log
  GET  /healthz                     liveness

The server shuts down gracefully on SIGINT/SIGTERM or when a drain signal is
sent with 'concierge signal drain'.`,
	RunE: runServe,
}

var signalClear bool

var signalCmd = &cobra.Command{
	Use:   "signal <simple-only|drain>",
	Short: "Steer a running concierge",
	Long: `Create or remove an operator signal file in <data_dir>/signals.

  simple-only  while present, complex questions are answered by a single
               responder instead of the deep path
  drain        a running 'concierge serve' shuts down gracefully`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{signals.SimpleOnly, signals.Drain},
	RunE:      runSignal,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
	signalCmd.Flags().BoolVar(&signalClear, "clear", false, "Remove the signal instead of sending it")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	// A drain left over from a previous run would stop the server at once.
	if err := os.Remove(filepath.Join(cfg.DataDir, "signals", signals.Drain)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear stale drain signal: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, cfg, runtimeOptions{watchSignals: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	serveCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-rt.signals.DrainRequested():
			fmt.Println(color.YellowString("Drain requested, shutting down..."))
			stop()
		case <-serveCtx.Done():
		}
	}()

	providers := rt.providerNames()
	if len(providers) == 0 {
		printStatus("⚠", "No language model configured; replies use responder fallbacks", color.FgYellow)
	} else {
		printStatus("✓", fmt.Sprintf("Providers: %v", providers), color.FgGreen)
	}
	printStatus("✓", fmt.Sprintf("Store: %s", cfg.Store.Driver), color.FgGreen)
	printStatus("✓", fmt.Sprintf("Listening on %s", cfg.Server.Addr), color.FgGreen)

	srv := server.New(cfg.Server.Addr, rt.orch, rt.store)
	if err := srv.Start(serveCtx); err != nil {
		return err
	}
	fmt.Println("Server stopped.")
	return nil
}

func runSignal(cmd *cobra.Command, args []string) error {
	name := args[0]
	if name != signals.SimpleOnly && name != signals.Drain {
		return fmt.Errorf("unknown signal %q (want %s or %s)", name, signals.SimpleOnly, signals.Drain)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	w, err := signals.NewWatcher(cfg.DataDir)
	if err != nil {
		return err
	}
	defer w.Close()

	if signalClear {
		if err := w.Clear(name); err != nil {
			return fmt.Errorf("clear signal %s: %w", name, err)
		}
		printStatus("✓", fmt.Sprintf("Cleared %s", name), color.FgGreen)
		return nil
	}
	if err := w.Send(name); err != nil {
		return fmt.Errorf("send signal %s: %w", name, err)
	}
	printStatus("✓", fmt.Sprintf("Sent %s (%s)", name, w.Dir()), color.FgGreen)
	return nil
}
