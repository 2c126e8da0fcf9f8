package notify

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Kind classifies a notification.
type Kind string

// Notification kinds.
const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// ParseKind maps free-form input onto a known kind, defaulting to info.
func ParseKind(value string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindSuccess:
		return KindSuccess
	case KindError:
		return KindError
	default:
		return KindInfo
	}
}

// DefaultTitle returns the heading shown for a kind when no title was given.
func DefaultTitle(kind Kind) string {
	switch kind {
	case KindError:
		return "Chyba"
	case KindSuccess:
		return "Hotovo"
	default:
		return "Info"
	}
}

// Notification is a user-facing message.
type Notification struct {
	Title   string
	Message string
	Kind    Kind
}

// Notifier is a fire-and-forget notification sink.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Nop discards notifications.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Notification) {}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, n Notification) {
	title := n.Title
	if title == "" {
		title = DefaultTitle(n.Kind)
	}
	l.Logger.Info().
		Str("kind", string(n.Kind)).
		Str("title", title).
		Str("message", n.Message).
		Msg("notification")
}

// Fanout delivers each notification to every sink.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, n Notification) {
	for _, sink := range f {
		if sink == nil {
			continue
		}
		sink.Notify(ctx, n)
	}
}
