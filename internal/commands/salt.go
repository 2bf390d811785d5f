package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/packseal/packseal/internal/keyderive"
)

// NewSaltCommand creates the salt subcommand.
func NewSaltCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "salt",
		Short: "Generate a package salt",
		Long:  "Generates the random 16-byte salt that identifies one protected package.\nThe salt doubles as the cipher IV and must be persisted alongside the ciphertext.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			salt, err := keyderive.GenerateSalt(a.provider)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), salt)
			return nil
		},
	}
}

// NewFingerprintCommand creates the fingerprint subcommand.
func NewFingerprintCommand(a *app) *cobra.Command {
	var salt string

	cmd := &cobra.Command{
		Use:   "fingerprint --salt SALT",
		Short: "Derive the fingerprint hash for the configured password",
		Long:  "Derives the persistable fingerprint hash: two full derivation passes over\nthe password. The fingerprint verifies a password without exposing the key.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requirePassword(); err != nil {
				return err
			}
			start := time.Now()
			fp, err := keyderive.DeriveFingerprint(a.provider, a.password, salt)
			a.observe("fingerprint", "", 0, start, err)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(fp))
			return nil
		},
	}

	cmd.Flags().StringVar(&salt, "salt", "", "Base64 package salt")
	cmd.MarkFlagRequired("salt")

	return cmd
}
