package streamx

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestTee_PassthroughAndBundle(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 5000) // 40000 bytes, > window

	tee := NewTee(bytes.NewReader(payload), DefaultSniffWindow)
	got, err := io.ReadAll(tee)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("pass-through bytes differ from input")
	}

	b, err := tee.Bundle()
	if err != nil {
		t.Fatalf("bundle error: %v", err)
	}
	sum := sha256.Sum256(payload)
	if b.SHA256 != hex.EncodeToString(sum[:]) {
		t.Fatalf("digest mismatch: %s", b.SHA256)
	}
	if b.Size != int64(len(payload)) {
		t.Fatalf("size mismatch: %d", b.Size)
	}
	if !bytes.Equal(b.Head, payload[:DefaultSniffWindow]) {
		t.Fatal("head does not match leading bytes")
	}
}

func TestTee_HeadShorterThanWindow(t *testing.T) {
	tee := NewTee(strings.NewReader("hello"), DefaultSniffWindow)
	if _, err := io.ReadAll(tee); err != nil {
		t.Fatalf("read error: %v", err)
	}
	b, err := tee.Bundle()
	if err != nil {
		t.Fatalf("bundle error: %v", err)
	}
	if string(b.Head) != "hello" || b.Size != 5 {
		t.Fatalf("unexpected bundle: head=%q size=%d", b.Head, b.Size)
	}
}

func TestTee_BundleBeforeEOF(t *testing.T) {
	tee := NewTee(strings.NewReader("payload"), DefaultSniffWindow)

	buf := make([]byte, 3)
	if _, err := tee.Read(buf); err != nil {
		t.Fatalf("read error: %v", err)
	}
	if _, err := tee.Bundle(); !errors.Is(err, ErrNotDrained) {
		t.Fatalf("want ErrNotDrained, got %v", err)
	}
}

func TestTee_OneByteReads(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")

	tee := NewTee(iotest.OneByteReader(bytes.NewReader(payload)), 8)
	got, err := io.ReadAll(tee)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("pass-through bytes differ from input")
	}

	b, err := tee.Bundle()
	if err != nil {
		t.Fatalf("bundle error: %v", err)
	}
	sum := sha256.Sum256(payload)
	if b.SHA256 != hex.EncodeToString(sum[:]) {
		t.Fatal("digest mismatch on chunked reads")
	}
	if !bytes.Equal(b.Head, payload[:8]) {
		t.Fatalf("head mismatch: %q", b.Head)
	}
}

func TestTee_EmptyStream(t *testing.T) {
	tee := NewTee(strings.NewReader(""), DefaultSniffWindow)
	if _, err := io.ReadAll(tee); err != nil {
		t.Fatalf("read error: %v", err)
	}
	b, err := tee.Bundle()
	if err != nil {
		t.Fatalf("bundle error: %v", err)
	}
	sum := sha256.Sum256(nil)
	if b.SHA256 != hex.EncodeToString(sum[:]) || b.Size != 0 || len(b.Head) != 0 {
		t.Fatalf("unexpected bundle for empty stream: %+v", b)
	}
}
