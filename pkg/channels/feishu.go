package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ritmohq/ritmo-go/pkg/bus"
	"github.com/ritmohq/ritmo-go/pkg/config"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkdispatcher "github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"go.uber.org/zap"
)

// FeishuChannel implements the Feishu transport: websocket inbound, IM API
// outbound.
type FeishuChannel struct {
	BaseChannel
	Config   *config.FeishuConfig
	client   *lark.Client
	wsClient *larkws.Client
	log      *zap.SugaredLogger
}

// NewFeishuChannel creates a new FeishuChannel.
func NewFeishuChannel(cfg *config.FeishuConfig, messageBus *bus.MessageBus, log *zap.SugaredLogger) *FeishuChannel {
	return &FeishuChannel{
		BaseChannel: BaseChannel{
			Bus:       messageBus,
			AllowFrom: cfg.AllowFrom,
		},
		Config: cfg,
		log:    log,
	}
}

func (c *FeishuChannel) Name() string {
	return "feishu"
}

func (c *FeishuChannel) Start() error {
	if !c.Config.Enabled || c.Config.AppID == "" || c.Config.AppSecret == "" {
		return nil
	}

	// API client for sending messages
	c.client = lark.NewClient(c.Config.AppID, c.Config.AppSecret)

	// WebSocket client for receiving messages
	handler := larkdispatcher.NewEventDispatcher(c.Config.VerificationToken, c.Config.EncryptKey).
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			content := *event.Event.Message.Content

			var textContent string
			var msgContent struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal([]byte(content), &msgContent); err == nil && msgContent.Text != "" {
				textContent = msgContent.Text
			} else {
				// Non-text payloads (cards, posts) are passed through raw;
				// the router treats them as ordinary text.
				textContent = content
			}

			chatID := *event.Event.Message.ChatId
			senderID := *event.Event.Sender.SenderId.OpenId

			if !c.IsAllowed(senderID) {
				c.log.Warnw("Feishu message from unauthorized user", "sender", senderID)
				return nil
			}

			c.Bus.PublishInbound(bus.InboundMessage{
				Channel:   c.Name(),
				SenderID:  senderID,
				ChatID:    chatID,
				Content:   textContent,
				Timestamp: time.Now(),
			})

			return nil
		})

	c.wsClient = larkws.NewClient(
		c.Config.AppID,
		c.Config.AppSecret,
		larkws.WithEventHandler(handler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	go func() {
		if err := c.wsClient.Start(context.Background()); err != nil {
			c.log.Errorw("Feishu websocket error", "error", err)
		}
	}()

	c.log.Infow("Feishu bot started")
	return nil
}

func (c *FeishuChannel) Stop() error {
	// The websocket client is bound to the process lifetime; exit tears it
	// down.
	return nil
}

// Send delivers a plain text message and returns the Feishu message id.
func (c *FeishuChannel) Send(msg bus.OutboundMessage) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("feishu client not initialized")
	}
	if msg.Content == "" {
		return "", nil
	}

	receiveIDType := larkim.ReceiveIdTypeOpenId
	if len(msg.ChatID) > 3 && msg.ChatID[:3] == "oc_" {
		receiveIDType = larkim.ReceiveIdTypeChatId
	}

	contentJSON, _ := json.Marshal(map[string]string{"text": msg.Content})

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(msg.ChatID).
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.client.Im.Message.Create(context.Background(), req)
	if err != nil {
		return "", err
	}
	if !resp.Success() {
		return "", fmt.Errorf("feishu error: %d %s", resp.Code, resp.Msg)
	}

	if resp.Data != nil && resp.Data.MessageId != nil {
		return *resp.Data.MessageId, nil
	}
	return "", nil
}
