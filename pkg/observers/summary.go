package observers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/halo/pkg/metrics"
	"github.com/harunnryd/halo/pkg/turn"
)

// SessionSummary counts what happened during one session.
type SessionSummary struct {
	SessionID      string `json:"session_id"`
	TurnsStarted   int    `json:"turns_started"`
	TurnsCompleted int    `json:"turns_completed"`
	Timeouts       int    `json:"timeouts"`
	NetworkErrors  int    `json:"network_errors"`
	Resets         int    `json:"resets"`
	HookFailures   int    `json:"hook_failures"`
	RecordedAtUTC  string `json:"recorded_at_utc,omitempty"`
}

// SummaryObserver aggregates per-session counters and writes them on Close.
type SummaryObserver struct {
	dir   string
	mu    sync.Mutex
	stats map[string]*SessionSummary
}

func NewSummaryObserver(dir string) *SummaryObserver {
	return &SummaryObserver{dir: dir, stats: make(map[string]*SessionSummary)}
}

func (o *SummaryObserver) RecordEvent(ev metrics.MetricsEvent) {
	id := ev.Tag(metrics.TagSessionID)
	if id == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	stat := o.stats[id]
	if stat == nil {
		stat = &SessionSummary{SessionID: id}
		o.stats[id] = stat
	}
	switch ev.Name {
	case metrics.EventStateChange:
		from, to := ev.Tag(metrics.TagFrom), ev.Tag(metrics.TagTo)
		switch turn.Trigger(ev.Tag(metrics.TagTrigger)) {
		case turn.TriggerTimeout:
			stat.Timeouts++
		case turn.TriggerNetworkError:
			stat.NetworkErrors++
		case turn.TriggerReset:
			stat.Resets++
		}
		if to == turn.StateListening.String() {
			stat.TurnsStarted++
		}
		if from == turn.StateResponding.String() && to == turn.StateIdle.String() && ev.Tag(metrics.TagTrigger) != string(turn.TriggerReset) {
			stat.TurnsCompleted++
		}
	case metrics.EventHookExec:
		if ev.Tag(metrics.TagStatus) != "ok" {
			stat.HookFailures++
		}
	}
}

// Summary returns a copy of the counters for a session.
func (o *SummaryObserver) Summary(sessionID string) (SessionSummary, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	stat, ok := o.stats[sessionID]
	if !ok {
		return SessionSummary{}, false
	}
	return *stat, true
}

// Close writes one <session>.summary.json per session when a directory is configured.
func (o *SummaryObserver) Close() error {
	if strings.TrimSpace(o.dir) == "" {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return err
	}
	var errOut error
	for id, stat := range o.stats {
		stat.RecordedAtUTC = time.Now().UTC().Format(time.RFC3339)
		b, err := json.MarshalIndent(stat, "", "  ")
		if err != nil {
			errOut = errors.Join(errOut, err)
			continue
		}
		path := filepath.Join(o.dir, sanitizeID(id)+".summary.json")
		if err := os.WriteFile(path, b, 0o644); err != nil {
			errOut = errors.Join(errOut, err)
		}
	}
	return errOut
}

var _ metrics.Observer = (*SummaryObserver)(nil)
