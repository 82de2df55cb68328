// Package audit provides structured event logging for node lifecycle and
// build events. Events are stored as JSON Lines (JSONL) files, one per
// subject (a node id or a project).
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// EventType classifies an event.
type EventType string

const (
	EventCreate   EventType = "create"
	EventStart    EventType = "start"
	EventStop     EventType = "stop"
	EventRemove   EventType = "remove"
	EventAdopt    EventType = "adopt"
	EventLost     EventType = "lost"
	EventBuild    EventType = "build"
	EventRejected EventType = "rejected"
	EventError    EventType = "error"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Subject   string    `json:"subject"`
	Details   string    `json:"details,omitempty"`
}

var unsafeSubjectChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SafeSubject turns an arbitrary label, such as a project path, into a
// subject usable as a file name.
func SafeSubject(label string) string {
	s := unsafeSubjectChars.ReplaceAllString(filepath.Base(label), "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

// Logger writes and reads audit events.
// Events are stored in {dir}/{subject}.events.jsonl.
type Logger struct {
	dir string
	mu  sync.Mutex
}

// NewLogger creates a new audit logger rooted at dir.
func NewLogger(dir string) *Logger {
	return &Logger{dir: dir}
}

// eventPath returns the path to the JSONL event log for a subject.
func (l *Logger) eventPath(subject string) (string, error) {
	if subject == "" || SafeSubject(subject) != subject {
		return "", fmt.Errorf("invalid audit subject %q", subject)
	}
	return filepath.Join(l.dir, subject+".events.jsonl"), nil
}

// Log appends an event to the subject's audit log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	path, err := l.eventPath(event.Subject)
	if err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent is a convenience method that creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, subject, details string) error {
	return l.Log(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Subject:   subject,
		Details:   details,
	})
}

// Events reads all events for a subject in chronological order.
func (l *Logger) Events(subject string) ([]Event, error) {
	path, err := l.eventPath(subject)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}
