package grid

import "time"

const logTimeLayout = "15:04:05"

// LogEntry is one line of the operator log.
type LogEntry struct {
	At      time.Time
	Kind    string
	Message string
}

// Line renders the entry the way the operator log shows it.
func (e LogEntry) Line() string {
	return "[" + e.At.Format(logTimeLayout) + "] " + e.Message
}

// Logbook keeps the most recent entries, newest first.
type Logbook struct {
	capacity int
	entries  []LogEntry
}

func NewLogbook(capacity int) *Logbook {
	if capacity <= 0 {
		capacity = 1
	}
	return &Logbook{capacity: capacity, entries: make([]LogEntry, 0, capacity)}
}

// Add prepends e, dropping the oldest entry once capacity is reached.
func (l *Logbook) Add(e LogEntry) {
	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, LogEntry{})
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = e
}

func (l *Logbook) Len() int { return len(l.entries) }

// Lines returns the rendered entries, newest first.
func (l *Logbook) Lines() []string {
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Line()
	}
	return out
}
