package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

var Corrupt = fmt.Errorf("corrupt compressed data")

// Deflate cannot expand input by more than this factor.
const maxExpansion = 1032

// Compress deflates data into a zlib stream.
func Compress(data []byte) ([]byte, error) {
	var out bytes.Buffer

	writer, err := zlib.NewWriterLevel(&out, zlib.BestCompression)
	if err != nil {
		return nil, err
	}

	if _, err := writer.Write(data); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// Decompress inflates a zlib stream that must expand to exactly
// expectedSize bytes.
func Decompress(data []byte, expectedSize int) ([]byte, error) {
	if expectedSize < 0 || expectedSize > len(data)*maxExpansion {
		return nil, fmt.Errorf("%w: %d bytes cannot expand to %d", Corrupt, len(data), expectedSize)
	}

	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", Corrupt, err)
	}
	defer reader.Close()

	out := make([]byte, expectedSize)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("%w: %v", Corrupt, err)
	}

	// Anything left over means the size we were given is wrong
	var extra [1]byte
	if n, _ := reader.Read(extra[:]); n != 0 {
		return nil, fmt.Errorf("%w: more than %d bytes", Corrupt, expectedSize)
	}

	return out, nil
}
