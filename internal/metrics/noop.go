package metrics

import "time"

// NoopSink discards all metrics.
type NoopSink struct{}

var _ Sink = NoopSink{}

func (NoopSink) FetchAttempt(int, error, time.Duration) {}
func (NoopSink) PageCompleted(string)                   {}
func (NoopSink) EventOutcome(string)                    {}
func (NoopSink) RunCompleted(time.Duration, int, error) {}
