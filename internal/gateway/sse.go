package gateway

import (
	"bytes"
	"io"
)

// findSSEDelimiter locates the first SSE frame boundary in buf, returning
// the index where the boundary starts and its length. Handles both \n\n
// and \r\n\r\n framing.
func findSSEDelimiter(buf []byte) (int, int) {
	idxLF := bytes.Index(buf, []byte("\n\n"))
	idxCRLF := bytes.Index(buf, []byte("\r\n\r\n"))

	switch {
	case idxLF == -1 && idxCRLF == -1:
		return -1, 0
	case idxCRLF == -1:
		return idxLF, 2
	case idxLF == -1:
		return idxCRLF, 4
	case idxCRLF < idxLF:
		return idxCRLF, 4
	default:
		return idxLF, 2
	}
}

// SSEFrameReader splits an upstream byte stream into complete SSE frames.
// A frame is everything up to and including the blank-line delimiter.
type SSEFrameReader struct {
	r   io.Reader
	buf []byte
	tmp []byte
	eof bool
}

func NewSSEFrameReader(r io.Reader) *SSEFrameReader {
	return &SSEFrameReader{r: r, tmp: make([]byte, 8*1024)}
}

// Next returns the next complete frame. At end of stream any buffered
// partial frame is returned once, then io.EOF.
func (fr *SSEFrameReader) Next() ([]byte, error) {
	for {
		if idx, delimLen := findSSEDelimiter(fr.buf); idx >= 0 {
			frame := fr.buf[:idx+delimLen]
			fr.buf = fr.buf[idx+delimLen:]
			return frame, nil
		}

		if fr.eof {
			if len(fr.buf) > 0 {
				frame := fr.buf
				fr.buf = nil
				return frame, nil
			}
			return nil, io.EOF
		}

		n, err := fr.r.Read(fr.tmp)
		if n > 0 {
			fr.buf = append(fr.buf, fr.tmp[:n]...)
		}
		if err == io.EOF {
			fr.eof = true
		} else if err != nil {
			return nil, err
		}
	}
}
