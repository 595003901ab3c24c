package router

import (
	"fmt"
	"strings"

	"github.com/ritmohq/ritmo-go/pkg/bus"
	"github.com/ritmohq/ritmo-go/pkg/schedule"
	"github.com/ritmohq/ritmo-go/pkg/tracker"
	"github.com/ritmohq/ritmo-go/pkg/workitems"
	"go.uber.org/zap"
)

// CheckinReplyHandler logs the answer against the work-item repository and
// acknowledges it.
type CheckinReplyHandler struct {
	Bus   *bus.MessageBus
	Repo  workitems.Repository
	Texts schedule.TextProvider

	log *zap.SugaredLogger
}

// NewCheckinReplyHandler wires the default reply handler.
func NewCheckinReplyHandler(b *bus.MessageBus, repo workitems.Repository, texts schedule.TextProvider, log *zap.SugaredLogger) *CheckinReplyHandler {
	return &CheckinReplyHandler{Bus: b, Repo: repo, Texts: texts, log: log}
}

// HandleReply records the answer and sends a short acknowledgement.
func (h *CheckinReplyHandler) HandleReply(msg bus.InboundMessage, rec schedule.Recipient, prompt tracker.PendingPrompt) {
	if err := h.Repo.RecordResponse(rec.ID, prompt.Kind, msg.Content, msg.Timestamp); err != nil {
		h.log.Errorw("Failed to record check-in response", "recipient", rec.ID, "kind", prompt.Kind, "error", err)
	}

	h.Bus.PublishOutbound(bus.OutboundMessage{
		Channel: rec.Channel,
		ChatID:  rec.ChatID,
		Content: h.Texts.Text(schedule.KindAck),
	})
}

// PauseControl is the slice of roster state the command set needs.
type PauseControl interface {
	SetEnabled(recipientID string, enabled bool) bool
}

// JobControl is the operational slice of the orchestrator.
type JobControl interface {
	RunJobNow(jobID string) bool
	ListJobs() []schedule.JobInfo
}

// BotCommandHandler implements the ordinary command set reachable when no
// check-in is pending.
type BotCommandHandler struct {
	Bus    *bus.MessageBus
	Repo   workitems.Repository
	Roster PauseControl
	Jobs   JobControl

	log *zap.SugaredLogger
}

// NewBotCommandHandler wires the default command handler.
func NewBotCommandHandler(b *bus.MessageBus, repo workitems.Repository, roster PauseControl, jobs JobControl, log *zap.SugaredLogger) *BotCommandHandler {
	return &BotCommandHandler{Bus: b, Repo: repo, Roster: roster, Jobs: jobs, log: log}
}

// HandleCommand parses and answers one command message.
func (h *BotCommandHandler) HandleCommand(msg bus.InboundMessage, rec schedule.Recipient) {
	fields := strings.Fields(strings.TrimSpace(msg.Content))
	cmd := ""
	if len(fields) > 0 {
		cmd = strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	}

	var reply string
	switch cmd {
	case "status":
		reply = h.status(rec)
	case "pause":
		h.Roster.SetEnabled(rec.ID, false)
		reply = "Check-ins paused. Send 'resume' when you want them back."
	case "resume":
		h.Roster.SetEnabled(rec.ID, true)
		reply = "Welcome back — check-ins resumed."
	case "jobs":
		reply = h.jobs()
	case "run-job":
		if len(fields) < 2 {
			reply = "Usage: run-job <job-id>"
		} else if h.Jobs.RunJobNow(fields[1]) {
			reply = fmt.Sprintf("Triggered job %s.", fields[1])
		} else {
			reply = fmt.Sprintf("No job registered with id %s.", fields[1])
		}
	case "help":
		reply = "Commands: status, pause, resume, jobs, run-job <id>, help"
	default:
		reply = "Not sure what you mean. Try 'help' for the command list."
	}

	h.Bus.PublishOutbound(bus.OutboundMessage{
		Channel: rec.Channel,
		ChatID:  rec.ChatID,
		Content: reply,
	})
}

func (h *BotCommandHandler) status(rec schedule.Recipient) string {
	responses, err := h.Repo.RecentResponses(rec.ID, 5)
	if err != nil {
		h.log.Errorw("Failed to read response history", "recipient", rec.ID, "error", err)
		return "Could not read your history right now."
	}
	if len(responses) == 0 {
		return "No check-in answers logged yet."
	}

	var sb strings.Builder
	sb.WriteString("Your latest check-ins:\n")
	for _, r := range responses {
		fmt.Fprintf(&sb, "- [%s] %s: %s\n", r.At.Format("Mon 15:04"), r.Kind, r.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (h *BotCommandHandler) jobs() string {
	infos := h.Jobs.ListJobs()
	if len(infos) == 0 {
		return "No jobs registered."
	}

	var sb strings.Builder
	sb.WriteString("Registered jobs:\n")
	for _, info := range infos {
		next := "pending"
		if info.NextRunAt != nil {
			next = info.NextRunAt.Format("Mon 15:04")
		}
		fmt.Fprintf(&sb, "- %s (%s) next: %s\n", info.ID, info.Name, next)
	}
	return strings.TrimRight(sb.String(), "\n")
}
