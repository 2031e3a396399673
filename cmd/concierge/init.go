package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/concierge/internal/config"
	"github.com/ShayCichocki/concierge/internal/registry"
)

var (
	initForce  bool
	initDriver string
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write an example project config and catalog",
	Long: `Create a .concierge.yaml project config and a catalog.yaml with the
built-in responders, ready to edit.

The directory argument is optional and defaults to the current directory.

Examples:
  concierge init                  # Current directory, memory store
  concierge init --driver sqlite  # Persist sessions in <data_dir>/concierge.db
  concierge init ./bot --force    # Overwrite existing files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initDriver, "driver", "memory", "Store driver (memory, sqlite, sqlite3, mysql, redis)")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing concierge in %s...\n\n", absPath)

	configFile := filepath.Join(absPath, ".concierge.yaml")
	catalogFile := filepath.Join(absPath, "catalog.yaml")
	for _, path := range []string{configFile, catalogFile} {
		if _, err := os.Stat(path); err == nil && !initForce {
			fmt.Printf("%s already exists. Use --force to overwrite.\n", filepath.Base(path))
			return nil
		}
	}

	data, err := registry.DefaultCatalog().Marshal()
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(catalogFile, data, 0644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	printStatus("✓", "Created catalog.yaml with the built-in responders", color.FgGreen)

	cfg := config.Default()
	cfg.Catalog.Path = catalogFile
	cfg.Store.Driver = initDriver
	if err := config.SaveToPath(cfg, configFile); err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("Created .concierge.yaml (store: %s)", initDriver), color.FgGreen)

	for _, provider := range cfg.LLM.ProviderOrder {
		env := config.APIKeyEnv(provider)
		if config.GetAPIKeySource(cfg, provider) == config.KeySourceNone {
			printStatus("⚠", fmt.Sprintf("%s not set", env), color.FgYellow)
		} else {
			printStatus("✓", fmt.Sprintf("%s is set", env), color.FgGreen)
		}
	}

	fmt.Printf("\n%s concierge initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  concierge              # chat in the terminal")
	fmt.Println("  concierge serve        # start the HTTP API")
	fmt.Println("  concierge responders   # inspect the catalog")
	return nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
