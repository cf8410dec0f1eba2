package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	groupID    string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "trivia-gamemaster",
		Short: "Timed trivia game master for group chats",
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&groupID, "group", os.Getenv("GROUP_ID"), "group chat ID to run the game in")
	cmd.AddCommand(NewPlayCmd(&configPath, &groupID))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}
