// Package stream defines the source and sink endpoint abstractions consumed
// by the stream cipher, plus adapters over io.Reader and io.Writer.
package stream

// Encoding selects how chunk bytes are represented on an endpoint.
type Encoding string

const (
	// EncodingText passes chunk bytes through unchanged.
	EncodingText Encoding = "text"

	// EncodingBase64 carries each chunk as standalone base64 text: a source
	// frames every raw chunk it reads, a sink decodes every chunk it is
	// given. Chunks are self-contained, so framing never spans chunk
	// boundaries.
	EncodingBase64 Encoding = "base64"
)

const (
	// DefaultBufferSize is the chunk size used when the caller does not
	// override it.
	DefaultBufferSize = 64 * 1024

	// MinBufferSize is the smallest accepted chunk size.
	MinBufferSize = 16

	// MaxBufferSize caps memory per chunk.
	MaxBufferSize = 8 * 1024 * 1024
)

// Source delivers a finite, non-restartable sequence of chunks. An operation
// owns the endpoint's configuration for its whole duration; callers must not
// reuse a source across operations without reconfiguring it.
type Source interface {
	// SetEncoding selects the representation of delivered chunks.
	SetEncoding(Encoding)

	// SetBufferSize overrides the chunk size for subsequent reads.
	SetBufferSize(int)

	// Open prepares the source for delivery.
	Open() error

	// Next returns the next chunk in delivery order. io.EOF signals a clean
	// end of data; any other error is terminal. Exactly one terminal signal
	// fires per opened source.
	Next() ([]byte, error)
}

// Sink accepts transformed chunks in write order.
type Sink interface {
	// SetEncoding selects the representation of accepted chunks.
	SetEncoding(Encoding)

	// Write accepts one chunk. The write must complete before the next
	// chunk is submitted.
	Write(chunk []byte) error

	// Close finalizes the sink. A sink is not closed after a failed
	// operation; partial writes stay in place.
	Close() error
}

// clampBufferSize bounds a requested chunk size the way the source adapters
// expect it.
func clampBufferSize(size int) int {
	if size <= 0 {
		return DefaultBufferSize
	}
	if size < MinBufferSize {
		return MinBufferSize
	}
	if size > MaxBufferSize {
		return MaxBufferSize
	}
	return size
}
