// Package streamx provides single-pass stream instrumentation used by the
// ingestion pipeline: a reader wrapper that forwards bytes unmodified while
// computing a SHA-256 digest, a byte count and a bounded sniff head.
package streamx

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"io"
)

// DefaultSniffWindow is how many leading bytes are captured for
// content-type sniffing when no explicit window is configured.
const DefaultSniffWindow = 16 * 1024

// ErrNotDrained is returned by Bundle when the pass-through side has not
// been consumed to EOF yet. The digest of a half-read stream would be
// meaningless, so the bundle stays unresolved until full consumption.
var ErrNotDrained = errors.New("stream not drained")

// Bundle holds everything the tee learned about the stream once it has
// been fully consumed.
type Bundle struct {
	// SHA256 is the hex-encoded digest of the entire stream.
	SHA256 string
	// Size is the total number of bytes forwarded downstream.
	Size int64
	// Head holds the first min(size, window) bytes for sniffing.
	Head []byte
}

// Tee wraps an io.Reader, forwarding it byte-for-byte while accumulating
// digest, size and head. It is not safe for concurrent readers; within one
// upload the stream must be consumed sequentially anyway.
type Tee struct {
	r      io.Reader
	digest hash.Hash
	size   int64
	head   []byte
	window int
	eof    bool
}

// NewTee wraps r with a sniff window of the given size. A non-positive
// window disables head capture.
func NewTee(r io.Reader, window int) *Tee {
	if window < 0 {
		window = 0
	}
	return &Tee{r: r, digest: sha256.New(), window: window}
}

// Read forwards bytes from the wrapped reader, updating the accumulators.
// The digest and counters reflect exactly the forwarded bytes: there is no
// second read and no replay.
func (t *Tee) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		chunk := p[:n]
		t.digest.Write(chunk)
		t.size += int64(n)
		if missing := t.window - len(t.head); missing > 0 {
			if missing > n {
				missing = n
			}
			t.head = append(t.head, chunk[:missing]...)
		}
	}
	if err == io.EOF {
		t.eof = true
	}
	return n, err
}

// Bundle returns the resolved digest, size and head. It fails with
// ErrNotDrained unless the wrapped reader has reported EOF.
func (t *Tee) Bundle() (Bundle, error) {
	if !t.eof {
		return Bundle{}, ErrNotDrained
	}
	return Bundle{
		SHA256: hex.EncodeToString(t.digest.Sum(nil)),
		Size:   t.size,
		Head:   t.head,
	}, nil
}
