package schedule

import "time"

// Recipient is one person on the active roster, addressed through a chat
// channel.
type Recipient struct {
	ID      string
	Channel string
	ChatID  string
}

// Sender delivers a message over the recipient's transport and returns the
// transport message id. Implementations must be safe to call from worker
// goroutines; a send may block on the network.
type Sender interface {
	Send(rec Recipient, text string) (string, error)
}

// RosterProvider exposes the active check-in roster.
type RosterProvider interface {
	ActiveRecipients() []Recipient
}

// PreferenceProvider answers per-recipient scheduling questions.
type PreferenceProvider interface {
	IsEnabled(recipientID string) bool
	LateNightEnabled(recipientID string) bool
	PreferredEventCount(recipientID string) int
	InQuietHours(recipientID string, now time.Time) bool
}

// TextProvider hands out prompt text for a kind. Picking among pre-authored
// variants is the provider's business, not the scheduler's.
type TextProvider interface {
	Text(kind string) string
}
