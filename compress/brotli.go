package compress

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
)

// BrotliCompressor compresses MED record-data streams and discretionary
// region payloads with Brotli.
//
// Brotli trades compression speed for ratio; it is the preferred codec for
// archival re-compression of closed (read-only) session record streams,
// where the stream is compressed once and decompressed many times.
type BrotliCompressor struct {
	quality int
}

var _ Codec = (*BrotliCompressor)(nil)

// NewBrotliCompressor creates a Brotli compressor at the default quality
// level (brotli.DefaultCompression).
func NewBrotliCompressor() BrotliCompressor {
	return BrotliCompressor{quality: brotli.DefaultCompression}
}

// NewBrotliCompressorLevel creates a Brotli compressor at the given quality
// (0-11; higher is slower and smaller).
func NewBrotliCompressorLevel(quality int) BrotliCompressor {
	return BrotliCompressor{quality: quality}
}

// Compress compresses data using Brotli at the configured quality level.
func (c BrotliCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.quality)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decompress decompresses Brotli-compressed data.
func (c BrotliCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r := brotli.NewReader(bytes.NewReader(data))

	return io.ReadAll(r)
}
