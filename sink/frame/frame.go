// Package frame reads and writes length-prefixed records in a compressed
// byte stream. Each frame is a uvarint length followed by that many bytes.
package frame

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/kbukum/parallelio/errors"
)

// Compression codecs.
const (
	None = "none"
	Gzip = "gzip"
	Zstd = "zstd"
)

// MaxFrameSize bounds a single decoded frame.
const MaxFrameSize = 1 << 30

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Writer writes frames to a compressed stream.
type Writer struct {
	dst io.Writer
	enc io.WriteCloser
	buf *bufio.Writer
	hdr [binary.MaxVarintLen64]byte
}

// NewWriter compresses frames written to w with codec at level. A zero level
// selects the codec default.
func NewWriter(w io.Writer, codec string, level int) (*Writer, error) {
	fw := &Writer{dst: w}
	switch codec {
	case Gzip:
		if level == 0 {
			level = gzip.DefaultCompression
		}
		zw, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, errors.InvalidInput("compression.level", err.Error())
		}
		fw.enc = zw
	case Zstd:
		opts := []zstd.EOption{}
		if level != 0 {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		zw, err := zstd.NewWriter(w, opts...)
		if err != nil {
			return nil, errors.InvalidInput("compression.level", err.Error())
		}
		fw.enc = zw
	case None, "":
		fw.enc = nopWriteCloser{w}
	default:
		return nil, errors.InvalidInput("compression", "unsupported codec "+codec)
	}
	fw.buf = bufio.NewWriter(fw.enc)
	return fw, nil
}

// Write appends one frame.
func (w *Writer) Write(p []byte) error {
	n := binary.PutUvarint(w.hdr[:], uint64(len(p)))
	if _, err := w.buf.Write(w.hdr[:n]); err != nil {
		return err
	}
	_, err := w.buf.Write(p)
	return err
}

// Flush pushes buffered frames into the compressor.
func (w *Writer) Flush() error {
	return w.buf.Flush()
}

// Close flushes and terminates the compressed stream. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.enc.Close()
}

// Reader reads frames from a stream written by Writer. The codec is detected
// from the stream header.
type Reader struct {
	dec io.ReadCloser
	buf *bufio.Reader
}

// NewReader opens a frame stream.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, err
	}

	var dec io.ReadCloser
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		dec = zr
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		dec = zr.IOReadCloser()
	default:
		dec = io.NopCloser(br)
	}
	return &Reader{dec: dec, buf: bufio.NewReader(dec)}, nil
}

// Next returns the next frame, or io.EOF after the last one. The returned
// slice is owned by the caller.
func (r *Reader) Next() ([]byte, error) {
	n, err := binary.ReadUvarint(r.buf)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.InvalidInput("frame", "corrupt length prefix").WithCause(err)
	}
	if n > MaxFrameSize {
		return nil, errors.InvalidInput("frame", "frame exceeds maximum size")
	}
	p := make([]byte, n)
	if _, err := io.ReadFull(r.buf, p); err != nil {
		return nil, errors.InvalidInput("frame", "truncated frame").WithCause(err)
	}
	return p, nil
}

// Close releases the decompressor. It does not close the underlying reader.
func (r *Reader) Close() error {
	return r.dec.Close()
}

// ReadAll returns every frame in data.
func ReadAll(data []byte) ([][]byte, error) {
	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var out [][]byte
	for {
		p, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}

// Encode compresses frames into a single buffer.
func Encode(frames [][]byte, codec string, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, codec, level)
	if err != nil {
		return nil, err
	}
	for _, p := range frames {
		if err := w.Write(p); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
