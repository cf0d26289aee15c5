package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplingKeepsListedEvents(t *testing.T) {
	mem := NewMemoryObserver()
	s := NewSamplingObserver(mem, 0.5, EventStateChange)
	for i := 0; i < 4; i++ {
		s.RecordEvent(MetricsEvent{Name: EventHookExec})
		s.RecordEvent(MetricsEvent{Name: EventStateChange})
	}
	assert.Len(t, mem.Named(EventStateChange), 4)
	assert.Len(t, mem.Named(EventHookExec), 2)
}

func TestSamplingZeroRateDropsAll(t *testing.T) {
	mem := NewMemoryObserver()
	s := NewSamplingObserver(mem, -1)
	s.RecordEvent(MetricsEvent{Name: EventHookExec})
	assert.Empty(t, mem.Events())
}

func TestAsyncObserverDeliversBeforeClose(t *testing.T) {
	mem := NewMemoryObserver()
	a := NewAsyncObserver(mem, 8)
	for i := 0; i < 5; i++ {
		a.RecordEvent(MetricsEvent{Name: EventHookExec, Value: float64(i)})
	}
	a.Close()
	a.Close()
	assert.Len(t, mem.Events(), 5)
	a.RecordEvent(MetricsEvent{Name: EventHookExec})
	assert.Len(t, mem.Events(), 5)
	assert.Zero(t, a.Dropped())
}

func TestJSONLObserverWritesTags(t *testing.T) {
	var buf bytes.Buffer
	o := NewJSONLObserver(&buf)
	o.RecordEvent(MetricsEvent{
		Name:  EventStateChange,
		Time:  time.Unix(10, 0),
		Value: 1,
		Tags:  map[string]string{TagFrom: "IDLE", TagTo: "LISTENING"},
	})
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, EventStateChange, line["name"])
	assert.Equal(t, "IDLE", line[TagFrom])
	assert.Equal(t, "LISTENING", line[TagTo])
}

func TestEventTag(t *testing.T) {
	assert.Empty(t, MetricsEvent{}.Tag(TagHook))
	assert.Equal(t, "x", MetricsEvent{Tags: map[string]string{TagHook: "x"}}.Tag(TagHook))
}
