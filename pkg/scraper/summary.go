package scraper

import (
	"fmt"
	"time"
)

const maxRecordedFailures = 50

// Summary aggregates the outcome of a run
type Summary struct {
	Resolved         int `json:"resolved"`
	SkippedMalformed int `json:"skipped_malformed"`
	SkippedNoMedia   int `json:"skipped_no_media"`

	Downloaded     int   `json:"downloaded"`
	AlreadyPresent int   `json:"already_present"`
	Failed         int   `json:"failed"`
	Bytes          int64 `json:"bytes"`

	UsersFetched int `json:"users_fetched"`
	UsersFailed  int `json:"users_failed"`

	Snapshots int    `json:"snapshots"`
	Archive   string `json:"archive,omitempty"`

	// Failures holds the first failure messages, capped
	Failures []string `json:"failures,omitempty"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Duration is how long the run took
func (s Summary) Duration() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// Skipped is the number of entries that were not downloadable
func (s Summary) Skipped() int {
	return s.SkippedMalformed + s.SkippedNoMedia
}

func (s Summary) String() string {
	return fmt.Sprintf("%d downloaded, %d already present, %d failed, %d skipped (%d malformed, %d without media) in %s",
		s.Downloaded, s.AlreadyPresent, s.Failed, s.Skipped(), s.SkippedMalformed, s.SkippedNoMedia,
		s.Duration().Round(time.Millisecond))
}

func (s *Summary) addOutcome(o Outcome) {
	switch o {
	case Resolved:
		s.Resolved++
	case SkippedMalformed:
		s.SkippedMalformed++
	case SkippedNoMedia:
		s.SkippedNoMedia++
	}
}

func (s *Summary) addFailure(msg string) {
	s.Failed++
	s.recordFailure(msg)
}

func (s *Summary) recordFailure(msg string) {
	if len(s.Failures) < maxRecordedFailures {
		s.Failures = append(s.Failures, msg)
	}
}
