package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		want       string
	}{
		{"200 OK", 200, nil, StatusClass2xx},
		{"404 Not Found", 404, nil, StatusClass4xx},
		{"429 Rate Limit", 429, nil, StatusClass4xx},
		{"503 Service Unavailable", 503, nil, StatusClass5xx},
		{"302 redirect", 302, nil, StatusClassOtherError},
		{"deadline", 0, fmt.Errorf("fetching: %w", context.DeadlineExceeded), StatusClassTimeout},
		{"timeout in message", 0, errors.New("Client.Timeout exceeded while awaiting headers"), StatusClassTimeout},
		{"connection refused", 0, errors.New("dial tcp 127.0.0.1:80: connect: connection refused"), StatusClassConnectionError},
		{"no such host", 0, errors.New("lookup icnasac.invalid: no such host"), StatusClassConnectionError},
		{"generic error", 0, errors.New("unexpected EOF"), StatusClassOtherError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyStatus(tt.statusCode, tt.err)
			if got != tt.want {
				t.Errorf("ClassifyStatus(%d, %v) = %q, want %q", tt.statusCode, tt.err, got, tt.want)
			}
		})
	}
}

func newTestSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusSink(reg), reg
}

func TestPrometheusSink_Fetch(t *testing.T) {
	sink, _ := newTestSink(t)

	sink.FetchAttempt(200, nil, 120*time.Millisecond)
	sink.FetchAttempt(503, nil, 80*time.Millisecond)
	sink.FetchAttempt(503, nil, 90*time.Millisecond)
	sink.FetchAttempt(0, context.DeadlineExceeded, 30*time.Second)
	sink.PageCompleted("ok")
	sink.PageCompleted("skipped")
	sink.PageCompleted("empty")

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"2xx attempts", testutil.ToFloat64(sink.fetchAttemptsTotal.WithLabelValues(StatusClass2xx)), 1},
		{"5xx attempts", testutil.ToFloat64(sink.fetchAttemptsTotal.WithLabelValues(StatusClass5xx)), 2},
		{"timeout attempts", testutil.ToFloat64(sink.fetchAttemptsTotal.WithLabelValues(StatusClassTimeout)), 1},
		{"ok pages", testutil.ToFloat64(sink.pagesTotal.WithLabelValues("ok")), 1},
		{"skipped pages", testutil.ToFloat64(sink.pagesTotal.WithLabelValues("skipped")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(sink.fetchDuration); n != 1 {
		t.Errorf("fetch duration series = %d, want 1", n)
	}
}

func TestPrometheusSink_Run(t *testing.T) {
	sink, _ := newTestSink(t)

	sink.EventOutcome(OutcomeBuilt)
	sink.EventOutcome(OutcomeBuilt)
	sink.EventOutcome(OutcomeFailed)
	sink.EventOutcome(OutcomeDuplicate)
	sink.RunCompleted(3*time.Second, 2, nil)

	if got := testutil.ToFloat64(sink.eventsTotal.WithLabelValues(OutcomeBuilt)); got != 2 {
		t.Errorf("built events = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sink.runsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("successful runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.documentEvents); got != 2 {
		t.Errorf("document events = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sink.lastRunDuration); got != 3 {
		t.Errorf("last run duration = %v, want 3", got)
	}
	success := testutil.ToFloat64(sink.lastSuccessTimestamp)
	if success == 0 {
		t.Error("last success timestamp not set")
	}

	sink.RunCompleted(time.Second, 0, errors.New("source unavailable"))
	if got := testutil.ToFloat64(sink.runsTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("failed runs = %v, want 1", got)
	}
	// a failed run leaves the last published document untouched
	if got := testutil.ToFloat64(sink.documentEvents); got != 2 {
		t.Errorf("document events after failure = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sink.lastSuccessTimestamp); got != success {
		t.Errorf("last success timestamp changed on failure")
	}
}

func TestPrometheusSink_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewPrometheusSink(reg)

	// the second sink fails to register but must stay usable
	sink := NewPrometheusSink(reg)
	sink.FetchAttempt(200, nil, time.Millisecond)
	sink.RunCompleted(time.Second, 1, nil)
}

func TestNoopSink(t *testing.T) {
	var s Sink = NoopSink{}
	s.FetchAttempt(500, nil, time.Second)
	s.PageCompleted("ok")
	s.EventOutcome(OutcomeBuilt)
	s.RunCompleted(time.Second, 1, nil)
}

func TestWriteTextfile(t *testing.T) {
	sink, reg := newTestSink(t)
	sink.PageCompleted("ok")
	sink.RunCompleted(time.Second, 4, nil)

	path := filepath.Join(t.TempDir(), "textfile", "icna_events.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{
		`icna_events_pages_total{status="ok"} 1`,
		"icna_events_document_events 4",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}
