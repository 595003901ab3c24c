package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritmohq/ritmo-go/pkg/bus"
	"github.com/ritmohq/ritmo-go/pkg/schedule"
)

func TestIsAllowed(t *testing.T) {
	open := &BaseChannel{}
	assert.True(t, open.IsAllowed("anyone"))

	restricted := &BaseChannel{AllowFrom: []string{"100", "alice"}}
	assert.True(t, restricted.IsAllowed("100"))
	assert.False(t, restricted.IsAllowed("999"))
	assert.True(t, restricted.IsAllowed("999|alice"))
	assert.False(t, restricted.IsAllowed("999|bob"))
}

type fakeChannel struct {
	name string
	sent []bus.OutboundMessage
	err  error
}

func (c *fakeChannel) Start() error { return nil }
func (c *fakeChannel) Stop() error  { return nil }
func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(msg bus.OutboundMessage) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.sent = append(c.sent, msg)
	return "42", nil
}

func TestMux_RoutesToOwningChannel(t *testing.T) {
	mux := NewMux()
	tg := &fakeChannel{name: "telegram"}
	fs := &fakeChannel{name: "feishu"}
	mux.Register(tg)
	mux.Register(fs)

	msgID, err := mux.Send(schedule.Recipient{ID: "alice", Channel: "telegram", ChatID: "100"}, "morning check-in")
	require.NoError(t, err)
	assert.Equal(t, "42", msgID)
	require.Len(t, tg.sent, 1)
	assert.Equal(t, "100", tg.sent[0].ChatID)
	assert.Equal(t, "morning check-in", tg.sent[0].Content)
	assert.Empty(t, fs.sent)
}

func TestMux_UnknownChannel(t *testing.T) {
	mux := NewMux()
	_, err := mux.Send(schedule.Recipient{ID: "alice", Channel: "telegram", ChatID: "100"}, "hi")
	assert.Error(t, err)
}
