package gateway

import (
	"io"
	"strings"
	"testing"
)

func TestSSEFrameReaderSplitsFrames(t *testing.T) {
	sse := "event: a\ndata: {\"n\":1}\n\n" +
		"event: b\ndata: {\"n\":2}\n\n"

	fr := NewSSEFrameReader(strings.NewReader(sse))

	first, err := fr.Next()
	if err != nil {
		t.Fatalf("first frame failed: %v", err)
	}
	if !strings.Contains(string(first), `"n":1`) {
		t.Fatalf("unexpected first frame: %q", first)
	}

	second, err := fr.Next()
	if err != nil {
		t.Fatalf("second frame failed: %v", err)
	}
	if !strings.Contains(string(second), `"n":2`) {
		t.Fatalf("unexpected second frame: %q", second)
	}

	if _, err := fr.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestSSEFrameReaderCRLFFraming(t *testing.T) {
	sse := "data: {\"n\":1}\r\n\r\ndata: {\"n\":2}\r\n\r\n"

	fr := NewSSEFrameReader(strings.NewReader(sse))

	frames := 0
	for {
		frame, err := fr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(frame) == 0 {
			t.Fatal("got empty frame")
		}
		frames++
	}
	if frames != 2 {
		t.Fatalf("expected 2 frames, got %d", frames)
	}
}

func TestSSEFrameReaderFlushesPartialFrameAtEOF(t *testing.T) {
	sse := "data: {\"n\":1}\n\ndata: {\"trailing\":true}"

	fr := NewSSEFrameReader(strings.NewReader(sse))

	if _, err := fr.Next(); err != nil {
		t.Fatalf("first frame failed: %v", err)
	}

	tail, err := fr.Next()
	if err != nil {
		t.Fatalf("tail frame failed: %v", err)
	}
	if !strings.Contains(string(tail), "trailing") {
		t.Fatalf("expected trailing partial frame, got %q", tail)
	}

	if _, err := fr.Next(); err != io.EOF {
		t.Fatalf("expected EOF after tail, got %v", err)
	}
}
