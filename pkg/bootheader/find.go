package bootheader

import (
	"bytes"
	"context"
	"io"

	"github.com/agentstation/gdcard/pkg/errors"
)

const scanChunk = 1 << 20

// Find scans r for the meta block marker and decodes the block that starts
// there. It returns the byte offset of the block within r.
func Find(ctx context.Context, r io.Reader) (*Header, int64, error) {
	marker := []byte(Marker)
	buf := make([]byte, 0, scanChunk+Size)
	chunk := make([]byte, scanChunk)
	var consumed int64

	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		n, readErr := io.ReadFull(r, chunk)
		buf = append(buf, chunk[:n]...)
		eof := readErr == io.EOF || readErr == io.ErrUnexpectedEOF
		if readErr != nil && !eof {
			return nil, 0, errors.WrapIO("read", "", readErr)
		}

		if i := bytes.Index(buf, marker); i >= 0 {
			// The block may straddle the chunk boundary.
			for len(buf)-i < Size && !eof {
				n, readErr = io.ReadFull(r, chunk[:Size])
				buf = append(buf, chunk[:n]...)
				eof = readErr != nil
			}
			h, err := Decode(buf[i:])
			if err != nil {
				return nil, 0, err
			}
			return h, consumed + int64(i), nil
		}

		if eof {
			return nil, 0, errors.NewParseError("ip.bin", "", "boot header marker not found", errors.ErrNotFound)
		}

		// Keep a tail so a marker split across chunks is still matched.
		keep := len(marker) - 1
		drop := len(buf) - keep
		consumed += int64(drop)
		buf = append(buf[:0], buf[drop:]...)
	}
}
