package runner

import "time"

// Statistics summarizes one run. Timestamps are Unix epoch milliseconds.
type Statistics struct {
	StartTime    int64 `json:"startTime"`
	EndTime      int64 `json:"endTime"`
	TestsRun     int   `json:"testsRun"`
	TestsFail    int   `json:"testsFail"`
	TestsSuccess int   `json:"testsSuccess"`
}

func newStatistics() *Statistics {
	return &Statistics{StartTime: time.Now().UnixMilli()}
}

// Duration is the wall time between StartTime and EndTime.
func (s *Statistics) Duration() time.Duration {
	if s.EndTime < s.StartTime {
		return 0
	}
	return time.Duration(s.EndTime-s.StartTime) * time.Millisecond
}

// Passed reports whether every request step that ran succeeded.
func (s *Statistics) Passed() bool {
	return s.TestsFail == 0
}
