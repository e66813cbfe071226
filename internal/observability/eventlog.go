package observability

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event is one line of the planning event log.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`  // e.g. "task.updated", "alert.raised"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// ProjectID returns the project the event belongs to, if recorded.
func (e Event) ProjectID() string {
	if id, ok := e.Data["project_id"].(string); ok {
		return id
	}
	return ""
}

// EventFilter narrows a Read. Zero fields match everything.
type EventFilter struct {
	Since     *time.Time
	Until     *time.Time
	Type      string
	Level     string
	ProjectID string
	// Limit keeps only the most recent N matches when positive.
	Limit int
}

// EventLog appends and reads planning events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

type jsonlEventLog struct {
	mu   sync.Mutex
	path string
	out  *os.File
}

// NewJSONLEventLog opens (or creates) an append-only JSONL event log at path.
func NewJSONLEventLog(path string) (EventLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{path: path, out: f}, nil
}

// Write appends event as a single JSON line. A zero Time is stamped with the
// current UTC time.
func (l *jsonlEventLog) Write(event Event) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	unlock, err := lockFile(l.out)
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	if _, err := l.out.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read scans the whole log and returns matching events in write order.
// Malformed lines are skipped.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			continue
		}
		if filter.matches(ev) {
			events = append(events, ev)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}

	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events, nil
}

func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.out.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

func (f EventFilter) matches(ev Event) bool {
	switch {
	case f.Since != nil && ev.Time.Before(*f.Since):
		return false
	case f.Until != nil && ev.Time.After(*f.Until):
		return false
	case f.Type != "" && ev.Type != f.Type:
		return false
	case f.Level != "" && ev.Level != f.Level:
		return false
	case f.ProjectID != "" && ev.ProjectID() != f.ProjectID:
		return false
	}
	return true
}
