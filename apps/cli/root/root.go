package root

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command of the operator CLI. Subcommands are attached in wire.go.
var rootCmd = &cobra.Command{
	Use:           "console",
	Short:         "BizScreen console operator CLI",
	Long:          "Operator utilities for the BizScreen console: migrations, tenants, resellers, domains and dev tokens.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to $DATABASE_URL)")
	pf.String("env-key", envOr("ENV_KEY", "dev"), "environment key used in storage prefixes")
	pf.String("log-level", envOr("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Execute runs the CLI. Cancelling ctx aborts in-flight database work.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
