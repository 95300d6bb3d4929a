package datadog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvsplit/internal/metrics"
)

type call struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	calls  []call
	closed int
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Close() error {
	f.closed++
	return nil
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	b, err := NewBackend(Config{})
	require.Error(t, err)
	assert.Nil(t, b)
}

func TestNewBackend_UDP(t *testing.T) {
	t.Parallel()

	// UDP clients do not dial a listener, so construction succeeds offline.
	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "batch.", Tags: []string{"env:test"}})
	require.NoError(t, err)
	require.NotNil(t, b)
	require.NoError(t, b.Flush())
}

func TestBackend_ForwardsWithSortedTags(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter(metrics.RecordsTotal, 4, metrics.Labels{"kind": "written", "job": "csvsplit"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.25, metrics.Labels{"step": "convert"})
	require.NoError(t, b.Flush())

	require.Len(t, fc.calls, 2)
	assert.Equal(t, call{"count", metrics.RecordsTotal, 4, []string{"job:csvsplit", "kind:written"}}, fc.calls[0])
	assert.Equal(t, call{"histogram", metrics.StepDurationSeconds, 0.25, []string{"step:convert"}}, fc.calls[1])
	assert.Equal(t, 1, fc.closed)
}

func TestBackend_NilClientIsNoop(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.ChunksTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, 1, nil)
	assert.NoError(t, b.Flush())
}

func TestLabelsToTags_Empty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, labelsToTags(nil))
}
