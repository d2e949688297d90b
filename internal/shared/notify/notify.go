// Package notify carries user-facing notifications (toasts) from the state
// containers to whatever renders them.
package notify

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level
	Message string
}

// Notifier shows a dismissable message to the shopper.
type Notifier interface {
	Notify(level Level, message string)
}

// LogNotifier writes notifications to the zerolog logger.
type LogNotifier struct{}

func (LogNotifier) Notify(level Level, message string) {
	switch level {
	case LevelError:
		log.Error().Str("notification", string(level)).Msg(message)
	case LevelWarning:
		log.Warn().Str("notification", string(level)).Msg(message)
	default:
		log.Info().Str("notification", string(level)).Msg(message)
	}
}

// Recorder keeps every notification in memory. Used by the CLI to render
// messages after a command and by tests to assert on them.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	r.items = append(r.items, Notification{Level: level, Message: message})
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// ByLevel returns the messages recorded at level
func (r *Recorder) ByLevel(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.items {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}

// Drain returns and forgets the recorded notifications
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	return out
}

// Multi fans a notification out to several notifiers
type Multi []Notifier

func (m Multi) Notify(level Level, message string) {
	for _, n := range m {
		n.Notify(level, message)
	}
}
