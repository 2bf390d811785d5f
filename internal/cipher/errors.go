package cipher

import "fmt"

// CipherError wraps a rejection from the underlying cipher primitive:
// malformed input, truncated or non-block-aligned ciphertext, or a wrong
// key/salt surfacing as a padding failure. The original error is preserved.
type CipherError struct {
	Op  string
	Err error
}

func (e *CipherError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *CipherError) Unwrap() error { return e.Err }

// StreamSourceError wraps a failure signaled by the source endpoint
// mid-read. The operation aborts without closing the sink.
type StreamSourceError struct {
	Err error
}

func (e *StreamSourceError) Error() string {
	return fmt.Sprintf("stream source failed: %v", e.Err)
}

func (e *StreamSourceError) Unwrap() error { return e.Err }
