package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quizlytic-service",
		Short: "Quiz authoring and attempt service",
	}

	// Flag defaults come from the environment so container deployments can
	// skip the flags entirely.
	var (
		port       = envOr("PORT", "8080")
		configPath = envOr("CONFIG_PATH", "config/config.yaml")
	)
	cmd.PersistentFlags().StringVar(&port, "port", port, "port to listen on")
	cmd.PersistentFlags().StringVar(&configPath, "config", configPath, "path to YAML config")

	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
