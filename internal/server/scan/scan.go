// Package scan defines the malware scanner port. Uploads are consumed in
// a single pass, so a scanner inspects bytes in flight rather than taking
// a replayable stream; the verdict becomes valid once the wrapped reader
// has been drained.
package scan

import "io"

// Verdict is the scan outcome.
type Verdict int

const (
	Clean Verdict = iota
	Infected
	// ScanError means the scan itself failed; callers treat it like
	// Infected and reject the upload.
	ScanError
)

// Report carries the verdict and scanner-specific details.
type Report struct {
	Verdict Verdict
	Details string
}

// Scanner wraps a stream for in-flight inspection.
type Scanner interface {
	// Wrap returns a reader forwarding r unmodified and a report function
	// that is valid after the returned reader hits EOF.
	Wrap(r io.Reader) (io.Reader, func() Report)
}

// NoOpScanner forwards the stream untouched and always reports Clean. It
// is the valid substitute when no scanning engine is deployed.
type NoOpScanner struct{}

// NewNoOpScanner returns the always-clean scanner.
func NewNoOpScanner() *NoOpScanner {
	return &NoOpScanner{}
}

func (s *NoOpScanner) Wrap(r io.Reader) (io.Reader, func() Report) {
	return r, func() Report { return Report{Verdict: Clean} }
}
