// Package toast produces the transient user-facing notifications raised by the dashboards.
// Presentation is left to the Notifier.
package toast

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/labstack/gommon/color"
	"github.com/oklog/ulid/v2"

	"github.com/nexussync/clubs/core"
)

type Severity uint8

const (
	Info Severity = iota
	Success
	Warning
	Error
)

var severityNames = [...]string{Info: "info", Success: "success", Warning: "warning", Error: "error"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "info"
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

const (
	DefaultTTL = 4 * time.Second
	ErrorTTL   = 6 * time.Second
)

type Toast struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Severity  Severity      `json:"severity"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

func New(sev Severity, title, msg string) Toast {
	ttl := DefaultTTL
	if sev == Error {
		ttl = ErrorTTL
	}
	return Toast{
		ID:        ulid.Make().String(),
		Title:     title,
		Message:   msg,
		Severity:  sev,
		CreatedAt: time.Now(),
		TTL:       ttl,
	}
}

// Expired reports whether the toast auto-dismissed before now.
func (t Toast) Expired(now time.Time) bool {
	return t.TTL > 0 && !now.Before(t.CreatedAt.Add(t.TTL))
}

func (t Toast) String() string {
	if t.Message == "" {
		return t.Title
	}
	return t.Title + ": " + t.Message
}

type Notifier interface {
	Notify(t Toast)
}

// Func adapts a function to a Notifier.
type Func func(t Toast)

func (f Func) Notify(t Toast) { f(t) }

// Discard drops every toast.
var Discard Notifier = Func(func(Toast) {})

// Tray keeps the toasts raised so far and hides them once their TTL elapsed.
type Tray struct {
	mu     sync.Mutex
	toasts []Toast
}

var _ Notifier = (*Tray)(nil)

func (tr *Tray) Notify(t Toast) {
	tr.mu.Lock()
	tr.toasts = append(tr.toasts, t)
	tr.mu.Unlock()
}

// All returns every toast raised, expired ones included.
func (tr *Tray) All() []Toast {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]Toast(nil), tr.toasts...)
}

// Active returns the toasts still visible at now and forgets the expired ones.
func (tr *Tray) Active(now time.Time) []Toast {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	kept := tr.toasts[:0]
	for _, t := range tr.toasts {
		if !t.Expired(now) {
			kept = append(kept, t)
		}
	}
	tr.toasts = kept
	return append([]Toast(nil), kept...)
}

func (tr *Tray) Dismiss(id string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for i, t := range tr.toasts {
		if t.ID == id {
			tr.toasts = append(tr.toasts[:i], tr.toasts[i+1:]...)
			return
		}
	}
}

// Count returns how many toasts of the given severity were raised.
func (tr *Tray) Count(sev Severity) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var n int
	for _, t := range tr.toasts {
		if t.Severity == sev {
			n++
		}
	}
	return n
}

// LogNotifier forwards toasts to a core.Logger, at a level matching their severity.
type LogNotifier struct {
	Logger core.Logger
}

func (n LogNotifier) Notify(t Toast) {
	switch t.Severity {
	case Error:
		n.Logger.Error(t.String())
	case Warning:
		n.Logger.Warn(t.String())
	default:
		n.Logger.Info(t.String())
	}
}

// WriterNotifier prints toasts on a terminal, one line each.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(t Toast) {
	var label string
	switch t.Severity {
	case Error:
		label = color.Red("✗")
	case Warning:
		label = color.Yellow("!")
	case Success:
		label = color.Green("✓")
	default:
		label = color.Blue("i")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "%s %s\n", label, t.String())
}
