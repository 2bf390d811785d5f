package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/packseal/packseal/internal/cipher"
	"github.com/packseal/packseal/internal/keyderive"
	"github.com/packseal/packseal/internal/stream"
)

// NewDecryptCommand creates the decrypt subcommand.
func NewDecryptCommand(a *app) *cobra.Command {
	var (
		text   string
		salt   string
		output string
		remote string
	)

	cmd := &cobra.Command{
		Use:     "decrypt [flags] [file]",
		Aliases: []string{"dec", "unseal"},
		Short:   "Decrypt text or a sealed package",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requirePassword(); err != nil {
				return err
			}

			var body io.ReadCloser
			switch {
			case remote != "":
				store, err := a.newStore(cmd)
				if err != nil {
					return err
				}
				start := time.Now()
				rc, info, err := store.Get(cmd.Context(), remote)
				a.metrics.RecordStoreOperation("get", a.cfg.Remote.Bucket, time.Since(start))
				if err != nil {
					a.metrics.RecordStoreError("get", a.cfg.Remote.Bucket, "download")
					return err
				}
				defer rc.Close()
				body = rc
				if salt == "" {
					salt = info.Salt
				}
				if info.Fingerprint != "" {
					fpStart := time.Now()
					fp, err := keyderive.DeriveFingerprint(a.provider, a.password, salt)
					a.observe("fingerprint", remote, 0, fpStart, err)
					if err != nil {
						return err
					}
					if string(fp) != info.Fingerprint {
						return fmt.Errorf("password does not match package %s", remote)
					}
				}
			case text == "" && len(args) == 1:
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer f.Close()
				body = f
			case text != "":
				// handled below
			default:
				return fmt.Errorf("provide a file argument, --text, or --remote")
			}

			if salt == "" {
				return fmt.Errorf("the package salt is required (--salt)")
			}

			pkg := "text"
			switch {
			case remote != "":
				pkg = remote
			case len(args) == 1:
				pkg = args[0]
			}

			deriveStart := time.Now()
			key, err := keyderive.DeriveKey(a.provider, a.password, salt)
			a.observe("derive", pkg, 0, deriveStart, err)
			if err != nil {
				return err
			}

			if text != "" {
				start := time.Now()
				plaintext, err := cipher.DecryptText(a.provider, key, salt, text)
				a.observe("decrypt", "text", int64(len(plaintext)), start, err)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), plaintext)
				return nil
			}

			if output == "" {
				return fmt.Errorf("an output file is required (--output)")
			}
			out, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}

			src := stream.NewReaderSource(body)
			sink := stream.NewWriterSink(out)
			opts := &cipher.StreamOptions{BufferSize: a.cfg.ChunkSize}

			start := time.Now()
			err = cipher.DecryptStream(cmd.Context(), a.provider, key, salt, src, sink, opts)
			var written int64
			if fi, statErr := os.Stat(output); statErr == nil {
				written = fi.Size()
			}
			a.observe("decrypt", output, written, start, err)
			if err != nil {
				out.Close()
				return err
			}

			a.logger.WithFields(logrus.Fields{
				"output": output,
				"salt":   salt,
			}).Info("Unsealed package")
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Decrypt this base64 ciphertext instead of a file")
	cmd.Flags().StringVar(&salt, "salt", "", "Base64 package salt used at encryption time")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file for stream decryption")
	cmd.Flags().StringVar(&remote, "remote", "", "Download the sealed package from the remote store")

	return cmd
}
