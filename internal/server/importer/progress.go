package importer

import (
	"sync"
	"time"
)

// Stage names a phase of an import.
type Stage string

const (
	StageReading   Stage = "reading"
	StageInserting Stage = "inserting"
)

// ProgressFunc receives cumulative progress. total is 0 while reading.
type ProgressFunc func(processed, total int, stage Stage)

// ThrottledProgress forwards inserting updates to fn at most once per
// interval. Reading updates and the final update (processed == total)
// always pass through.
func ThrottledProgress(fn ProgressFunc, interval time.Duration) ProgressFunc {
	return throttled(fn, interval, time.Now)
}

func throttled(fn ProgressFunc, interval time.Duration, now func() time.Time) ProgressFunc {
	if fn == nil {
		return nil
	}

	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(processed, total int, stage Stage) {
		mu.Lock()
		t := now()
		inserting := stage == StageInserting
		pass := !inserting || processed >= total || last.IsZero() || t.Sub(last) >= interval
		if pass && inserting {
			last = t
		}
		mu.Unlock()

		if pass {
			fn(processed, total, stage)
		}
	}
}
