package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	counters   []counterCall
	histograms []histCall
	flushCount int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

// swap installs fb for the duration of the test.
func swap(t *testing.T, fb Backend) {
	t.Helper()
	orig := current()
	mu.Lock()
	backend = fb
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		backend = orig
		mu.Unlock()
	})
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	fb := &fakeBackend{}
	swap(t, fb)

	RecordStep("jobA", StepHeaderScan, nil, 2*time.Second)
	RecordStep("jobB", StepConvert, errors.New("boom"), 1500*time.Millisecond)

	if len(fb.counters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.counters))
	}
	if len(fb.histograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.histograms))
	}

	cc0 := fb.counters[0]
	if cc0.name != StepTotal || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=%s, delta=1", cc0, StepTotal)
	}
	if cc0.labels["job"] != "jobA" || cc0.labels["step"] != "header_scan" || cc0.labels["status"] != "success" {
		t.Fatalf("counter[0].labels = %v", cc0.labels)
	}

	h0 := fb.histograms[0]
	if h0.name != StepDurationSeconds {
		t.Fatalf("hist[0].name=%q; want %s", h0.name, StepDurationSeconds)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}

	cc1 := fb.counters[1]
	if cc1.labels["step"] != "convert" || cc1.labels["status"] != "failure" {
		t.Fatalf("counter[1].labels = %v; want step=convert status=failure", cc1.labels)
	}
	if v := fb.histograms[1].value; v < 1.5-0.001 || v > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", v)
	}
}

func TestRecordRowAndChunks(t *testing.T) {
	fb := &fakeBackend{}
	swap(t, fb)

	RecordRow("jobX", KindWritten, 3)
	RecordRow("jobX", KindWritten, 0) // ignored
	RecordRow("jobY", KindDateParseFailed, 5)
	RecordChunks("jobZ", "table", 2)
	RecordChunks("jobZ", "table", -1) // ignored

	if len(fb.counters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.counters))
	}

	c0 := fb.counters[0]
	if c0.name != RecordsTotal || c0.delta != 3 || c0.labels["kind"] != "written" {
		t.Fatalf("counter[0] = %#v", c0)
	}
	c1 := fb.counters[1]
	if c1.name != RecordsTotal || c1.delta != 5 || c1.labels["job"] != "jobY" || c1.labels["kind"] != "date_parse_failed" {
		t.Fatalf("counter[1] = %#v", c1)
	}
	c2 := fb.counters[2]
	if c2.name != ChunksTotal || c2.delta != 2 || c2.labels["job"] != "jobZ" || c2.labels["mode"] != "table" {
		t.Fatalf("counter[2] = %#v", c2)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	swap(t, nopBackend{})

	fb := &fakeBackend{}
	SetBackend(fb)
	if current() != fb {
		t.Fatal("SetBackend did not replace global backend")
	}

	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	SetBackend(nil)
	if current() != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}

func TestNopBackendIsDefault(t *testing.T) {
	if _, ok := current().(nopBackend); !ok {
		t.Skipf("backend replaced by another test: %T", current())
	}
	RecordStep("job", StepConvert, nil, time.Millisecond)
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush: %v", err)
	}
}
