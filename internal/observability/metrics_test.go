package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/flowide/internal/observable"
)

var _ observable.Recorder = (*Metrics)(nil)

func TestHistogramSnapshot(t *testing.T) {
	h := NewHistogram()
	for i := 1; i <= 100; i++ {
		h.Observe(time.Duration(i) * time.Millisecond)
	}

	s := h.Snapshot()
	if s.Count != 100 {
		t.Fatalf("Count = %d, want 100", s.Count)
	}
	if s.Max != 100*time.Millisecond {
		t.Errorf("Max = %v, want 100ms", s.Max)
	}
	if s.P50 < 50*time.Millisecond || s.P50 > 51*time.Millisecond {
		t.Errorf("P50 = %v, want ~50.5ms", s.P50)
	}
	if empty := NewHistogram().Snapshot(); empty.Count != 0 {
		t.Errorf("empty histogram Count = %d", empty.Count)
	}
}

func TestCounterVecConcurrent(t *testing.T) {
	cv := NewCounterVec()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cv.WithLabels("name").Inc()
		}()
	}
	wg.Wait()

	if got := cv.Snapshot()["name"]; got != 50 {
		t.Errorf("counter = %d, want 50", got)
	}
}

func TestRecorder(t *testing.T) {
	m := NewMetrics()
	m.Dispatched("name", 2)
	m.Dispatched("name", 0)
	m.Recovered("links")

	s := m.Snapshot()
	if s.Dispatches["name"] != 2 {
		t.Errorf("dispatches[name] = %d, want 2", s.Dispatches["name"])
	}
	if s.SubscriberPanics["links"] != 1 {
		t.Errorf("panics[links] = %d, want 1", s.SubscriberPanics["links"])
	}
}

func TestWriteReports(t *testing.T) {
	m := NewMetrics()
	m.DBQueryDuration().WithLabels("get").Observe(time.Millisecond)
	m.NotifyDropped().Inc()

	var text bytes.Buffer
	m.WriteText(&text)
	if !strings.Contains(text.String(), "DB Query Duration by query") {
		t.Errorf("text report misses query durations:\n%s", text.String())
	}
	if !strings.Contains(text.String(), "Dropped: 1") {
		t.Errorf("text report misses dropped count:\n%s", text.String())
	}

	var out bytes.Buffer
	if err := m.WriteJSON(&out); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded MetricsSnapshot
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.DBQueryDuration["get"].Count != 1 {
		t.Errorf("decoded get count = %d, want 1", decoded.DBQueryDuration["get"].Count)
	}
}
