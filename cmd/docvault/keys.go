package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/docvault/pkg/secrets"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a new random ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secrets.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func newVerifyKeyCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "verify-key",
		Short: "Check that ENCRYPTION_KEY is a usable 32-byte hex key",
		Long: `Parses the key and runs an encrypt/decrypt round trip. The key is taken
from --key, or from ENCRYPTION_KEY (a .env file in the working directory is
honored). The key itself is never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("failed to read .env: %w", err)
				}
				key = os.Getenv(secrets.EnvKey)
			}

			cipher, err := secrets.NewCipher(key)
			if err != nil {
				return err
			}
			if err := cipher.SelfCheck(); err != nil {
				return fmt.Errorf("self check failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "encryption key OK")
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "hex key to check instead of ENCRYPTION_KEY")
	return cmd
}
