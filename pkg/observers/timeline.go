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
	"github.com/harunnryd/halo/pkg/redact"
)

// TimelineObserver writes a per-session timeline as JSONL.
type TimelineObserver struct {
	dir   string
	mu    sync.Mutex
	files map[string]*os.File
}

// NewTimelineObserver creates a new timeline observer writing to dir.
func NewTimelineObserver(dir string) *TimelineObserver {
	return &TimelineObserver{dir: dir, files: make(map[string]*os.File)}
}

// RecordEvent implements metrics.Observer.
func (o *TimelineObserver) RecordEvent(ev metrics.MetricsEvent) {
	sessionID := ev.Tag(metrics.TagSessionID)
	if sessionID == "" || strings.TrimSpace(o.dir) == "" {
		return
	}
	entry := timelineEvent{
		Time:      ev.Time.UTC(),
		Event:     mapEventName(ev),
		SessionID: sessionID,
		Value:     ev.Value,
		Tags:      copyTags(ev.Tags),
		Fields:    sanitizeFields(ev.Fields),
	}
	delete(entry.Tags, metrics.TagSessionID)
	if len(entry.Tags) == 0 {
		entry.Tags = nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	f := o.fileForLocked(sessionID)
	if f == nil {
		return
	}
	_, _ = f.Write(append(line, '\n'))
}

// Path returns the timeline file for a session.
func (o *TimelineObserver) Path(sessionID string) string {
	return filepath.Join(o.dir, sanitizeID(sessionID)+".jsonl")
}

// Close closes any open files.
func (o *TimelineObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var err error
	for _, f := range o.files {
		if f == nil {
			continue
		}
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	o.files = make(map[string]*os.File)
	return err
}

type timelineEvent struct {
	Time      time.Time         `json:"time"`
	Event     string            `json:"event"`
	SessionID string            `json:"session_id"`
	Value     float64           `json:"value,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Fields    map[string]any    `json:"fields,omitempty"`
}

func (o *TimelineObserver) fileForLocked(id string) *os.File {
	safe := sanitizeID(id)
	if safe == "" {
		return nil
	}
	if f := o.files[safe]; f != nil {
		return f
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(o.dir, safe+".jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	o.files[safe] = f
	return f
}

// mapEventName names state changes after the state entered, e.g. "enter_listening".
func mapEventName(ev metrics.MetricsEvent) string {
	if ev.Name == metrics.EventStateChange {
		if to := ev.Tag(metrics.TagTo); to != "" {
			return "enter_" + strings.ToLower(to)
		}
	}
	return ev.Name
}

func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

func copyTags(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sanitizeFields(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = redact.Text(s)
			continue
		}
		out[k] = v
	}
	return out
}

var _ metrics.Observer = (*TimelineObserver)(nil)
