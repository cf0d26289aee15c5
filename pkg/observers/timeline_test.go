package observers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/halo/pkg/metrics"
	"github.com/harunnryd/halo/pkg/redact"
)

func TestTimelineObserverWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	obs := NewTimelineObserver(dir)

	obs.RecordEvent(metrics.MetricsEvent{
		Name: metrics.EventStateChange,
		Time: time.Now(),
		Tags: map[string]string{
			metrics.TagSessionID: "session/1",
			metrics.TagFrom:      "IDLE",
			metrics.TagTo:        "LISTENING",
		},
	})
	obs.RecordEvent(metrics.MetricsEvent{Name: metrics.EventHookExec, Time: time.Now()})
	_ = obs.Close()

	path := filepath.Join(dir, "session_1.jsonl")
	if obs.Path("session/1") != path {
		t.Fatalf("unexpected path %s", obs.Path("session/1"))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(b), "enter_listening") {
		t.Fatalf("expected enter_listening event in file")
	}
	if strings.Count(string(b), "\n") != 1 {
		t.Fatalf("expected events without session to be skipped")
	}
}

func TestTimelineObserverRedactsFields(t *testing.T) {
	redact.SetEnabled(true)
	defer redact.SetEnabled(false)

	dir := t.TempDir()
	obs := NewTimelineObserver(dir)
	obs.RecordEvent(metrics.MetricsEvent{
		Name:   metrics.EventHookExec,
		Time:   time.Now(),
		Tags:   map[string]string{metrics.TagSessionID: "s1"},
		Fields: map[string]any{"text": "mail me at jane@example.com", "attempt": 2},
	})
	_ = obs.Close()

	b, err := os.ReadFile(obs.Path("s1"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Contains(string(b), "jane@example.com") {
		t.Fatalf("expected email to be redacted: %s", b)
	}
	if !strings.Contains(string(b), "[REDACTED_EMAIL]") {
		t.Fatalf("expected redaction marker: %s", b)
	}
}
