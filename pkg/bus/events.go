package bus

import (
	"time"
)

// InboundMessage is a message received from a chat channel.
type InboundMessage struct {
	Channel   string    `json:"channel"`
	SenderID  string    `json:"sender_id"`
	ChatID    string    `json:"chat_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// OutboundMessage is a message to deliver to a chat channel.
type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}
