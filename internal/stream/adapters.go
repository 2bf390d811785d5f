package stream

import (
	"encoding/base64"
	"fmt"
	"io"
)

// ReaderSource adapts an io.Reader into a Source. With EncodingBase64 it
// reads bufferSize raw bytes per chunk and delivers their base64 encoding,
// mirroring how platform file streams frame binary data for chunked transit.
type ReaderSource struct {
	r          io.Reader
	encoding   Encoding
	bufferSize int
	buf        []byte
	opened     bool
	eof        bool
}

// NewReaderSource returns a text-encoded source with the default chunk size.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{
		r:          r,
		encoding:   EncodingText,
		bufferSize: DefaultBufferSize,
	}
}

func (s *ReaderSource) SetEncoding(enc Encoding) { s.encoding = enc }

func (s *ReaderSource) SetBufferSize(size int) {
	s.bufferSize = clampBufferSize(size)
	if s.opened {
		s.buf = make([]byte, s.bufferSize)
	}
}

func (s *ReaderSource) Open() error {
	if s.r == nil {
		return fmt.Errorf("source has no underlying reader")
	}
	s.buf = make([]byte, s.bufferSize)
	s.opened = true
	return nil
}

func (s *ReaderSource) Next() ([]byte, error) {
	if !s.opened {
		return nil, fmt.Errorf("source is not open")
	}
	if s.eof {
		return nil, io.EOF
	}

	n, err := io.ReadFull(s.r, s.buf)
	if err == io.EOF {
		s.eof = true
		return nil, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		// Short final chunk; the next call reports end of data.
		s.eof = true
	} else if err != nil {
		s.eof = true
		return nil, err
	}

	raw := s.buf[:n]
	if s.encoding == EncodingBase64 {
		enc := make([]byte, base64.StdEncoding.EncodedLen(n))
		base64.StdEncoding.Encode(enc, raw)
		return enc, nil
	}
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

// WriterSink adapts an io.Writer into a Sink. With EncodingBase64 every
// written chunk is decoded from base64 before reaching the underlying
// writer, so the writer receives raw bytes.
type WriterSink struct {
	w        io.Writer
	encoding Encoding
	closed   bool
}

// NewWriterSink returns a text-encoded sink over w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w, encoding: EncodingText}
}

func (s *WriterSink) SetEncoding(enc Encoding) { s.encoding = enc }

func (s *WriterSink) Write(chunk []byte) error {
	if s.closed {
		return fmt.Errorf("sink is closed")
	}
	data := chunk
	if s.encoding == EncodingBase64 {
		decoded := make([]byte, base64.StdEncoding.DecodedLen(len(chunk)))
		n, err := base64.StdEncoding.Decode(decoded, chunk)
		if err != nil {
			return fmt.Errorf("failed to decode base64 chunk: %w", err)
		}
		data = decoded[:n]
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	return nil
}

func (s *WriterSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close sink: %w", err)
		}
	}
	return nil
}
