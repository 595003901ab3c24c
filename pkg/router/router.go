// Package router decides what an inbound message is: the answer to an
// outstanding check-in, or an ordinary command. The pending-prompt lookup
// is the only gate; no language understanding happens here.
package router

import (
	"github.com/ritmohq/ritmo-go/pkg/bus"
	"github.com/ritmohq/ritmo-go/pkg/schedule"
	"github.com/ritmohq/ritmo-go/pkg/tracker"
	"go.uber.org/zap"
)

// RecipientResolver maps an inbound (channel, sender) address to a roster
// recipient.
type RecipientResolver interface {
	Resolve(channel, senderID string) (schedule.Recipient, bool)
}

// ReplyHandler consumes a message that answered a pending check-in.
type ReplyHandler interface {
	HandleReply(msg bus.InboundMessage, rec schedule.Recipient, prompt tracker.PendingPrompt)
}

// CommandHandler consumes everything else.
type CommandHandler interface {
	HandleCommand(msg bus.InboundMessage, rec schedule.Recipient)
}

// Router consumes the inbound side of the bus.
type Router struct {
	bus      *bus.MessageBus
	tracker  *tracker.Tracker
	resolver RecipientResolver
	replies  ReplyHandler
	commands CommandHandler

	stopChan chan struct{}
	log      *zap.SugaredLogger
}

// New wires the router.
func New(b *bus.MessageBus, tr *tracker.Tracker, resolver RecipientResolver, replies ReplyHandler, commands CommandHandler, log *zap.SugaredLogger) *Router {
	return &Router{
		bus:      b,
		tracker:  tr,
		resolver: resolver,
		replies:  replies,
		commands: commands,
		stopChan: make(chan struct{}),
		log:      log,
	}
}

// Run consumes inbound messages until Stop. Each message is routed on its
// own goroutine so a slow handler never backs up the bus.
func (r *Router) Run() {
	inbound := r.bus.ConsumeInbound()
	for {
		select {
		case msg := <-inbound:
			go r.Route(msg)
		case <-r.stopChan:
			return
		}
	}
}

// Stop terminates Run.
func (r *Router) Stop() {
	close(r.stopChan)
}

// Route classifies one message. A live pending prompt wins: the reply is
// correlated with it and the slot cleared. Everything else (including a
// reply arriving after the prompt expired) goes to command handling.
func (r *Router) Route(msg bus.InboundMessage) {
	rec, ok := r.resolver.Resolve(msg.Channel, msg.SenderID)
	if !ok {
		r.log.Debugw("Inbound message from unknown sender", "channel", msg.Channel, "sender", msg.SenderID)
		return
	}

	if prompt, ok := r.tracker.Lookup(rec.ID); ok {
		r.tracker.Clear(rec.ID)
		r.log.Infow("Reply correlated with check-in",
			"recipient", rec.ID,
			"prompt_id", prompt.ID,
			"kind", prompt.Kind)
		r.replies.HandleReply(msg, rec, prompt)
		return
	}

	r.commands.HandleCommand(msg, rec)
}
