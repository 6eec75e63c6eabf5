// Package notify delivers the short fire-and-forget messages the store
// emits after user-initiated mutations.
package notify

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Notifier receives the outcome of a store action.
type Notifier interface {
	Notify(title, detail string)
}

// Func adapts a function to the Notifier interface.
type Func func(title, detail string)

func (f Func) Notify(title, detail string) { f(title, detail) }

// Log writes notifications to a logrus logger.
type Log struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(title, detail string) {
	l.logger.WithFields(log.Fields{"title": title, "detail": detail}).Info("notification")
}

// Notification is one delivered message.
type Notification struct {
	Title  string    `json:"title"`
	Detail string    `json:"detail"`
	Time   time.Time `json:"time"`
}

// Ring keeps the most recent notifications in memory so the HTTP surface
// can serve them to clients that missed the live delivery.
type Ring struct {
	mu    sync.Mutex
	max   int
	items []Notification
}

func NewRing(max int) *Ring {
	if max <= 0 {
		max = 50
	}
	return &Ring{max: max}
}

func (r *Ring) Notify(title, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Title: title, Detail: detail, Time: time.Now()})
	if len(r.items) > r.max {
		r.items = r.items[len(r.items)-r.max:]
	}
}

// Recent returns the buffered notifications, oldest first.
func (r *Ring) Recent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Multi fans a notification out to every sink in order.
type Multi []Notifier

func (m Multi) Notify(title, detail string) {
	for _, n := range m {
		n.Notify(title, detail)
	}
}
