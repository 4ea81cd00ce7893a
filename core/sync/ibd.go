package sync

import "time"

// DefaultIBDThreshold is how far behind wall clock the tip timestamp may
// be before the node still considers itself in IBD.
const DefaultIBDThreshold = 24 * time.Hour

// IBDTracker decides whether the node is in initial block download:
// in IBD iff the tip timestamp is older than threshold behind
// wall clock AND the best-known header is still advancing. On exit,
// callers should enable relay and start the block filter service.
type IBDTracker struct {
	threshold time.Duration

	lastBestKnownNumber uint64
	lastAdvancedAt      time.Time
	exited              bool
}

func NewIBDTracker(threshold time.Duration) *IBDTracker {
	return &IBDTracker{threshold: threshold}
}

// Update reports the current in-IBD status given the chain tip's
// timestamp and the best-known header number across all peers. now is
// passed in explicitly so the tracker has no hidden wall-clock
// dependency.
func (t *IBDTracker) Update(tipTimestampMs uint64, bestKnownNumber uint64, now time.Time) bool {
	if t.exited {
		return false
	}

	if bestKnownNumber > t.lastBestKnownNumber {
		t.lastBestKnownNumber = bestKnownNumber
		t.lastAdvancedAt = now
	}

	tipAge := now.Sub(time.UnixMilli(int64(tipTimestampMs)))
	stillBehind := tipAge > t.threshold
	stillAdvancing := !t.lastAdvancedAt.IsZero() && now.Sub(t.lastAdvancedAt) < t.threshold

	inIBD := stillBehind && stillAdvancing
	if !inIBD {
		t.exited = true
	}
	return inIBD
}

// Exited reports whether the tracker has ever reported IBD exit; once
// true, IBD never resumes for the life of the process.
func (t *IBDTracker) Exited() bool { return t.exited }
