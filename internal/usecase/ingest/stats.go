package ingest

import "sync"

// Stats accumulates pipeline counters. Safe for concurrent use.
type Stats struct {
	mu       sync.Mutex
	total    int
	valid    int
	skipped  int
	indexed  int
	failed   int
	warnings []string
}

// Warn records one normalization warning.
func (s *Stats) Warn(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, msg)
}

func (s *Stats) markValid() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.valid++
}

func (s *Stats) markSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.skipped++
}

func (s *Stats) markIndexed(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed += n
}

func (s *Stats) markFailed(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed += n
}

// Summary is an immutable snapshot of the pipeline counters.
type Summary struct {
	Total    int
	Valid    int
	Skipped  int
	Indexed  int
	Failed   int
	Warnings []string
}

// Summary returns the current counters.
func (s *Stats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		Total:    s.total,
		Valid:    s.valid,
		Skipped:  s.skipped,
		Indexed:  s.indexed,
		Failed:   s.failed,
		Warnings: append([]string(nil), s.warnings...),
	}
}
