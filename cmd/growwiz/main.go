// GrowWiz - grow-room automation service.
//
// This is the entry point for the growwiz binary. With no subcommand it
// runs the service (see serve.go); other subcommands manage migrations and
// operator credentials.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnvVar overrides defaultConfigPath; --config overrides both.
const configEnvVar = "GROWWIZ_CONFIG"

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "growwiz",
	Short: "GrowWiz - grow-room automation",
	Long: `GrowWiz watches grow-room sensors and switches the fan, heater,
humidifier, pump, lights and CO2 valve according to threshold rules.

Run without a subcommand to start the service.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "",
		fmt.Sprintf("config file (default $%s or %s)", configEnvVar, defaultConfigPath))
}

func main() {
	// Secrets may live in a .env file next to the binary; it is optional.
	_ = godotenv.Load() //nolint:errcheck // missing .env is normal

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1) //nolint:gocritic // cancel is a no-op at exit
	}
}

// getConfigPath returns the configuration file path: the --config flag,
// then GROWWIZ_CONFIG, then the default.
func getConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}
