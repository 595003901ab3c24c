package router

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ritmohq/ritmo-go/pkg/bus"
	"github.com/ritmohq/ritmo-go/pkg/schedule"
	"github.com/ritmohq/ritmo-go/pkg/tracker"
	"github.com/ritmohq/ritmo-go/pkg/workitems"
)

type outboundCapture struct {
	mu   sync.Mutex
	msgs []bus.OutboundMessage
}

func (c *outboundCapture) add(msg bus.OutboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *outboundCapture) snapshot() []bus.OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bus.OutboundMessage, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func newCapturedBus(t *testing.T) (*bus.MessageBus, *outboundCapture) {
	t.Helper()
	b := bus.NewMessageBus(zap.NewNop().Sugar())
	capture := &outboundCapture{}
	b.SubscribeOutbound("telegram", capture.add)
	go b.DispatchOutbound()
	t.Cleanup(b.Stop)
	return b, capture
}

type fixedTexts struct{}

func (fixedTexts) Text(kind string) string { return "ack:" + kind }

type stubJobControl struct {
	infos  []schedule.JobInfo
	ranIDs []string
}

func (s *stubJobControl) RunJobNow(jobID string) bool {
	s.ranIDs = append(s.ranIDs, jobID)
	return jobID != "missing"
}

func (s *stubJobControl) ListJobs() []schedule.JobInfo { return s.infos }

type stubPause struct {
	state map[string]bool
}

func (s *stubPause) SetEnabled(id string, enabled bool) bool {
	s.state[id] = enabled
	return true
}

var testRecipient = schedule.Recipient{ID: "alice", Channel: "telegram", ChatID: "100"}

func TestHandleReply_RecordsAndAcknowledges(t *testing.T) {
	b, capture := newCapturedBus(t)
	repo := workitems.NewMemoryStore()
	h := NewCheckinReplyHandler(b, repo, fixedTexts{}, zap.NewNop().Sugar())

	prompt := tracker.PendingPrompt{ID: "p1", RecipientID: "alice", Kind: schedule.KindPlanning}
	msg := bus.InboundMessage{Channel: "telegram", SenderID: "100", Content: "ship the release", Timestamp: time.Now()}
	h.HandleReply(msg, testRecipient, prompt)

	responses, err := repo.RecentResponses("alice", 5)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, schedule.KindPlanning, responses[0].Kind)
	assert.Equal(t, "ship the release", responses[0].Text)

	require.Eventually(t, func() bool { return len(capture.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	ack := capture.snapshot()[0]
	assert.Equal(t, "100", ack.ChatID)
	assert.Equal(t, "ack:"+schedule.KindAck, ack.Content)
}

func newCommandHandlerFixture(t *testing.T) (*BotCommandHandler, *outboundCapture, *stubPause, *stubJobControl, *workitems.MemoryStore) {
	t.Helper()
	b, capture := newCapturedBus(t)
	repo := workitems.NewMemoryStore()
	pause := &stubPause{state: map[string]bool{}}
	jobs := &stubJobControl{}
	h := NewBotCommandHandler(b, repo, pause, jobs, zap.NewNop().Sugar())
	return h, capture, pause, jobs, repo
}

func command(content string) bus.InboundMessage {
	return bus.InboundMessage{Channel: "telegram", SenderID: "100", Content: content, Timestamp: time.Now()}
}

func waitForReply(t *testing.T, capture *outboundCapture) bus.OutboundMessage {
	t.Helper()
	require.Eventually(t, func() bool { return len(capture.snapshot()) >= 1 }, 2*time.Second, 10*time.Millisecond)
	msgs := capture.snapshot()
	return msgs[len(msgs)-1]
}

func TestHandleCommand_PauseAndResume(t *testing.T) {
	h, capture, pause, _, _ := newCommandHandlerFixture(t)

	h.HandleCommand(command("pause"), testRecipient)
	reply := waitForReply(t, capture)
	assert.Contains(t, reply.Content, "paused")
	enabled, ok := pause.state["alice"]
	require.True(t, ok)
	assert.False(t, enabled)

	h.HandleCommand(command("/resume"), testRecipient)
	require.Eventually(t, func() bool { return len(capture.snapshot()) >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, pause.state["alice"])
}

func TestHandleCommand_StatusListsHistory(t *testing.T) {
	h, capture, _, _, repo := newCommandHandlerFixture(t)
	require.NoError(t, repo.RecordResponse("alice", schedule.KindPlanning, "ship it", time.Now()))

	h.HandleCommand(command("status"), testRecipient)
	reply := waitForReply(t, capture)
	assert.Contains(t, reply.Content, "ship it")
	assert.Contains(t, reply.Content, schedule.KindPlanning)
}

func TestHandleCommand_StatusEmptyHistory(t *testing.T) {
	h, capture, _, _, _ := newCommandHandlerFixture(t)

	h.HandleCommand(command("status"), testRecipient)
	reply := waitForReply(t, capture)
	assert.Contains(t, reply.Content, "No check-in answers")
}

func TestHandleCommand_JobsShowsPendingForUnassignedNextRun(t *testing.T) {
	h, capture, _, jobs, _ := newCommandHandlerFixture(t)
	next := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	jobs.infos = []schedule.JobInfo{
		{ID: "checkin:planning:2026-03-02", Name: "planning check-in", NextRunAt: &next},
		{ID: "daily-rebuild", Name: "materialize daily plan"},
	}

	h.HandleCommand(command("jobs"), testRecipient)
	reply := waitForReply(t, capture)
	assert.Contains(t, reply.Content, "checkin:planning:2026-03-02")
	assert.Contains(t, reply.Content, "pending")
}

func TestHandleCommand_RunJob(t *testing.T) {
	h, capture, _, jobs, _ := newCommandHandlerFixture(t)

	h.HandleCommand(command("run-job checkin:planning:2026-03-02"), testRecipient)
	reply := waitForReply(t, capture)
	assert.Contains(t, reply.Content, "Triggered")
	assert.Equal(t, []string{"checkin:planning:2026-03-02"}, jobs.ranIDs)

	h.HandleCommand(command("run-job missing"), testRecipient)
	require.Eventually(t, func() bool { return len(capture.snapshot()) >= 2 }, 2*time.Second, 10*time.Millisecond)
	msgs := capture.snapshot()
	assert.Contains(t, msgs[len(msgs)-1].Content, "No job registered")

	h.HandleCommand(command("run-job"), testRecipient)
	require.Eventually(t, func() bool { return len(capture.snapshot()) >= 3 }, 2*time.Second, 10*time.Millisecond)
	msgs = capture.snapshot()
	assert.Contains(t, msgs[len(msgs)-1].Content, "Usage")
}

func TestHandleCommand_UnknownFallsBackToHint(t *testing.T) {
	h, capture, _, _, _ := newCommandHandlerFixture(t)

	h.HandleCommand(command("what is this"), testRecipient)
	reply := waitForReply(t, capture)
	assert.Contains(t, reply.Content, "help")
}
