package core

import (
	"context"
	"sync"
)

type Severity string

const (
	SeverityDefault     Severity = "default"
	SeveritySuccess     Severity = "success"
	SeverityDestructive Severity = "destructive"
)

// Toast is a short operator-facing notification.
type Toast struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Severity    Severity `json:"severity"`
}

func SuccessToast(title, description string) Toast {
	return Toast{Title: title, Description: description, Severity: SeveritySuccess}
}

func ErrorToast(title, description string) Toast {
	return Toast{Title: title, Description: description, Severity: SeverityDestructive}
}

// Notifier is anything toasts can be reported to.
type Notifier interface {
	Notify(toast Toast)
}

// Toasts collects toasts for the duration of a request.
type Toasts struct {
	mu    sync.Mutex
	items []Toast
}

var _ Notifier = (*Toasts)(nil)

func (t *Toasts) Notify(toast Toast) {
	t.mu.Lock()
	t.items = append(t.items, toast)
	t.mu.Unlock()
}

// Drain returns the collected toasts and empties the collector.
func (t *Toasts) Drain() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	items := t.items
	t.items = nil
	return items
}

type notifierCtxKey struct{}

// WithNotifier returns a copy of ctx carrying n.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierCtxKey{}, n)
}

// Notify reports toast to the Notifier carried by ctx, if any.
func Notify(ctx context.Context, toast Toast) {
	if n, ok := ctx.Value(notifierCtxKey{}).(Notifier); ok && n != nil {
		n.Notify(toast)
	}
}
