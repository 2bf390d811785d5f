package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/packseal/packseal/internal/audit"
	"github.com/packseal/packseal/internal/cipher"
	"github.com/packseal/packseal/internal/keyderive"
	"github.com/packseal/packseal/internal/storage"
	"github.com/packseal/packseal/internal/stream"
)

// NewEncryptCommand creates the encrypt subcommand.
func NewEncryptCommand(a *app) *cobra.Command {
	var (
		text   string
		salt   string
		output string
		remote string
	)

	cmd := &cobra.Command{
		Use:     "encrypt [flags] [file]",
		Aliases: []string{"enc", "seal"},
		Short:   "Encrypt text or a file with the configured password",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requirePassword(); err != nil {
				return err
			}
			if text == "" && len(args) == 0 {
				return fmt.Errorf("provide a file argument or --text")
			}

			if salt == "" {
				generated, err := keyderive.GenerateSalt(a.provider)
				if err != nil {
					return err
				}
				salt = generated
			}

			pkg := "text"
			if len(args) == 1 {
				pkg = args[0]
			}

			deriveStart := time.Now()
			key, err := keyderive.DeriveKey(a.provider, a.password, salt)
			if err != nil {
				a.observe("derive", pkg, 0, deriveStart, err)
				return err
			}
			fingerprint, err := keyderive.DeriveFingerprint(a.provider, a.password, salt)
			a.observe("derive", pkg, 0, deriveStart, err)
			if err != nil {
				return err
			}

			a.logger.WithFields(logrus.Fields{
				"salt":        salt,
				"fingerprint": string(fingerprint),
				"provider":    a.provider.Name(),
			}).Info("Derived package key")

			if text != "" {
				start := time.Now()
				ciphertext, err := cipher.EncryptText(a.provider, key, salt, text)
				a.observe("encrypt", "text", int64(len(text)), start, err)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), salt)
				fmt.Fprintln(cmd.OutOrStdout(), ciphertext)
				return nil
			}

			input := args[0]
			if output == "" {
				output = input + ".sealed"
			}

			start := time.Now()
			size, err := a.encryptFile(cmd, key, salt, input, output)
			a.observe("encrypt", input, size, start, err)
			if err != nil {
				return err
			}

			a.logger.WithFields(logrus.Fields{
				"input":  input,
				"output": output,
				"bytes":  size,
			}).Info("Sealed package")

			if remote != "" {
				return a.uploadPackage(cmd, remote, output, salt, string(fingerprint))
			}
			fmt.Fprintln(cmd.OutOrStdout(), salt)
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Encrypt this string instead of a file")
	cmd.Flags().StringVar(&salt, "salt", "", "Reuse a base64 package salt instead of generating one")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: input + .sealed)")
	cmd.Flags().StringVar(&remote, "remote", "", "Upload the sealed package to the remote store under this name")

	return cmd
}

// encryptFile stream-encrypts input into output and returns the input size.
func (a *app) encryptFile(cmd *cobra.Command, key keyderive.Key, salt, input, output string) (int64, error) {
	in, err := os.Open(input)
	if err != nil {
		return 0, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat input: %w", err)
	}

	out, err := os.Create(output)
	if err != nil {
		return stat.Size(), fmt.Errorf("failed to create output: %w", err)
	}

	src := stream.NewReaderSource(in)
	sink := stream.NewWriterSink(out)
	opts := &cipher.StreamOptions{BufferSize: a.cfg.ChunkSize}

	if err := cipher.EncryptStream(cmd.Context(), a.provider, key, salt, src, sink, opts); err != nil {
		// The sink stays unclosed on failure; release the handle here.
		out.Close()
		return stat.Size(), err
	}
	return stat.Size(), nil
}

// uploadPackage stores a sealed file remotely with its salt and fingerprint.
func (a *app) uploadPackage(cmd *cobra.Command, name, path, salt, fingerprint string) error {
	store, err := a.newStore(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open sealed package: %w", err)
	}
	defer f.Close()

	start := time.Now()
	err = store.Put(cmd.Context(), name, f, storage.PackageInfo{
		Salt:        salt,
		Fingerprint: fingerprint,
	})
	a.metrics.RecordStoreOperation("put", a.cfg.Remote.Bucket, time.Since(start))
	if err != nil {
		a.metrics.RecordStoreError("put", a.cfg.Remote.Bucket, "upload")
		return err
	}

	a.logger.WithFields(logrus.Fields{
		"package": name,
		"bucket":  a.cfg.Remote.Bucket,
	}).Info("Uploaded sealed package")
	return nil
}

// observe records metrics and the audit trail for a finished crypto
// operation.
func (a *app) observe(operation, pkg string, bytes int64, start time.Time, err error) {
	duration := time.Since(start)
	if err != nil {
		a.metrics.RecordCryptoError(operation, errorType(err))
	} else {
		a.metrics.RecordCryptoOperation(operation, a.provider.Name(), duration, bytes)
	}

	eventType := audit.EventTypeSeal
	switch operation {
	case "decrypt":
		eventType = audit.EventTypeUnseal
	case "derive", "fingerprint":
		eventType = audit.EventTypeDerive
	}
	a.audit.Record(eventType, pkg, a.provider.Name(), err, duration)
}

// errorType maps an error to a coarse metric label.
func errorType(err error) string {
	switch err.(type) {
	case *cipher.CipherError:
		return "cipher"
	case *cipher.StreamSourceError:
		return "stream_source"
	case *keyderive.DerivationError:
		return "derivation"
	default:
		return "other"
	}
}
