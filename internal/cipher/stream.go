package cipher

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/packseal/packseal/internal/keyderive"
	"github.com/packseal/packseal/internal/provider"
	"github.com/packseal/packseal/internal/stream"
)

// StreamOptions carries per-operation overrides.
type StreamOptions struct {
	// BufferSize overrides the source endpoint's chunk size for this
	// operation only. Zero keeps the source default.
	BufferSize int
}

// EncryptStream reads base64-framed raw data from src, encrypts it through a
// single cipher context, and writes raw ciphertext chunks to sink. The
// operation takes ownership of both endpoints' configuration for its
// duration and closes the sink only on success.
func EncryptStream(ctx context.Context, p provider.Provider, key keyderive.Key, salt string, src stream.Source, sink stream.Sink, opts *StreamOptions) error {
	return runStream(ctx, p, key, salt, src, sink, opts, true)
}

// DecryptStream reads raw ciphertext chunks from src, decrypts them through
// a single decipher context, and writes base64-framed plaintext to sink.
func DecryptStream(ctx context.Context, p provider.Provider, key keyderive.Key, salt string, src stream.Source, sink stream.Sink, opts *StreamOptions) error {
	return runStream(ctx, p, key, salt, src, sink, opts, false)
}

// runStream drives the chunk loop. One stateful cipher context spans the
// whole operation; chunks feed it strictly in delivery order and the sink
// write for chunk n completes before chunk n+1's output is submitted. Only
// the end-of-data signal triggers finalization. On a source error the sink
// is left unclosed and partial writes stay in place.
func runStream(ctx context.Context, p provider.Provider, key keyderive.Key, salt string, src stream.Source, sink stream.Sink, opts *StreamOptions, encrypt bool) error {
	op := "stream decrypt"
	if encrypt {
		op = "stream encrypt"
	}

	cctx, err := newContext(p, key, salt, encrypt)
	if err != nil {
		return err
	}

	// The encoding pairing is part of the wire format shared with the text
	// functions: encryption reads base64-framed raw data and emits raw
	// ciphertext, decryption reverses both roles.
	if encrypt {
		src.SetEncoding(stream.EncodingBase64)
		sink.SetEncoding(stream.EncodingText)
	} else {
		src.SetEncoding(stream.EncodingText)
		sink.SetEncoding(stream.EncodingBase64)
	}
	if opts != nil && opts.BufferSize > 0 {
		src.SetBufferSize(opts.BufferSize)
	}

	if err := src.Open(); err != nil {
		return &StreamSourceError{Err: err}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunk, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &StreamSourceError{Err: err}
		}

		payload := chunk
		if encrypt {
			payload, err = base64.StdEncoding.DecodeString(string(chunk))
			if err != nil {
				return &CipherError{Op: op, Err: fmt.Errorf("invalid base64 chunk: %w", err)}
			}
		}

		out, err := cctx.Update(payload)
		if err != nil {
			return &CipherError{Op: op, Err: err}
		}
		if len(out) == 0 {
			continue
		}
		if err := writeChunk(sink, out, encrypt); err != nil {
			return err
		}
	}

	fin, err := cctx.Final()
	if err != nil {
		return &CipherError{Op: op, Err: err}
	}
	if len(fin) > 0 {
		if err := writeChunk(sink, fin, encrypt); err != nil {
			return err
		}
	}

	if err := sink.Close(); err != nil {
		return fmt.Errorf("failed to close sink: %w", err)
	}
	return nil
}

// writeChunk frames the cipher output for the sink: ciphertext goes out raw,
// decrypted bytes are base64-framed for the sink to decode.
func writeChunk(sink stream.Sink, out []byte, encrypt bool) error {
	if !encrypt {
		out = []byte(base64.StdEncoding.EncodeToString(out))
	}
	if err := sink.Write(out); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	return nil
}
