package channels

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ritmohq/ritmo-go/pkg/bus"
	"github.com/ritmohq/ritmo-go/pkg/schedule"
)

// Channel is the interface for chat transports. Send returns the transport
// message id on success.
type Channel interface {
	Start() error
	Stop() error
	Send(msg bus.OutboundMessage) (string, error)
	Name() string
}

// BaseChannel provides common functionality for channels.
type BaseChannel struct {
	Bus       *bus.MessageBus
	AllowFrom []string
}

// IsAllowed checks if a sender is allowed to talk to this bot.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.AllowFrom) == 0 {
		return true
	}

	for _, allowed := range c.AllowFrom {
		if allowed == senderID {
			return true
		}
		// Handle composite IDs like "id|username"
		if strings.Contains(senderID, "|") {
			for _, part := range strings.Split(senderID, "|") {
				if part == allowed {
					return true
				}
			}
		}
	}
	return false
}

// Mux fans synchronous sends out to the channel that owns the recipient.
// It implements the scheduler's Sender capability; channels register under
// their Name.
type Mux struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewMux creates an empty mux.
func NewMux() *Mux {
	return &Mux{channels: make(map[string]Channel)}
}

// Register adds a started channel to the mux.
func (m *Mux) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// Send delivers text to the recipient over their configured channel and
// returns the transport message id. Safe to call from worker goroutines.
func (m *Mux) Send(rec schedule.Recipient, text string) (string, error) {
	m.mu.RLock()
	ch, ok := m.channels[rec.Channel]
	m.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("no channel registered for %q", rec.Channel)
	}
	return ch.Send(bus.OutboundMessage{
		Channel: rec.Channel,
		ChatID:  rec.ChatID,
		Content: text,
	})
}
