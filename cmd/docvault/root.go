package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/docvault/pkg/config"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "docvault",
		Short: "Docvault - document workspace API with role based access and encrypted provider keys",
		Long: `Docvault serves the document workspace API. It authorizes every request
against the role hierarchy (user, admin, super_admin, god) and stores AI
provider keys encrypted with AES-256-GCM.

Configuration is read from defaults, then the YAML file given by --config or
DOCVAULT_CONFIG_FILE, then environment variables. ENCRYPTION_KEY, JWT_SECRET
and DATABASE_URL are only read from the environment.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				return os.Setenv(config.EnvConfigFile, configFile)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newKeygenCmd())
	root.AddCommand(newVerifyKeyCmd())
	return root
}
