package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ritmohq/ritmo-go/pkg/bus"
	"github.com/ritmohq/ritmo-go/pkg/config"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dingtalkoauth2 "github.com/alibabacloud-go/dingtalk/oauth2_1_0"
	dingtalkrobot "github.com/alibabacloud-go/dingtalk/robot_1_0"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/chatbot"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/client"
	dtlogger "github.com/open-dingtalk/dingtalk-stream-sdk-go/logger"
	"go.uber.org/zap"
)

// DingTalkChannel implements the DingTalk transport: stream-mode inbound,
// robot API outbound with a cached tenant access token.
type DingTalkChannel struct {
	BaseChannel
	Config       *config.DingTalkConfig
	streamClient *client.StreamClient
	robotClient  *dingtalkrobot.Client
	oauthClient  *dingtalkoauth2.Client
	log          *zap.SugaredLogger

	tokenMu       sync.RWMutex
	accessToken   string
	tokenExpireAt time.Time
}

// NewDingTalkChannel creates a new DingTalkChannel.
func NewDingTalkChannel(cfg *config.DingTalkConfig, messageBus *bus.MessageBus, log *zap.SugaredLogger) *DingTalkChannel {
	return &DingTalkChannel{
		BaseChannel: BaseChannel{
			Bus:       messageBus,
			AllowFrom: cfg.AllowFrom,
		},
		Config: cfg,
		log:    log,
	}
}

func (c *DingTalkChannel) Name() string {
	return "dingtalk"
}

func (c *DingTalkChannel) Start() error {
	if !c.Config.Enabled || c.Config.ClientID == "" || c.Config.AppSecret == "" {
		return nil
	}

	apiConfig := &openapi.Config{
		Protocol: tea.String("https"),
		RegionId: tea.String("central"),
	}

	robotClient, err := dingtalkrobot.NewClient(apiConfig)
	if err != nil {
		return fmt.Errorf("failed to init dingtalk robot client: %w", err)
	}
	c.robotClient = robotClient

	oauthClient, err := dingtalkoauth2.NewClient(apiConfig)
	if err != nil {
		return fmt.Errorf("failed to init dingtalk oauth client: %w", err)
	}
	c.oauthClient = oauthClient

	dtlogger.SetLogger(dtlogger.NewStdTestLogger())
	c.streamClient = client.NewStreamClient(client.WithAppCredential(client.NewAppCredentialConfig(c.Config.ClientID, c.Config.AppSecret)))
	c.streamClient.RegisterChatBotCallbackRouter(c.onChatReceive)

	go func() {
		// Start blocks, so run it off the caller.
		if err := c.streamClient.Start(context.Background()); err != nil {
			c.log.Errorw("DingTalk stream client error", "error", err)
		}
	}()

	c.log.Infow("DingTalk bot started")
	return nil
}

func (c *DingTalkChannel) Stop() error {
	if c.streamClient != nil {
		c.streamClient.Close()
	}
	return nil
}

func (c *DingTalkChannel) getAccessToken() (string, error) {
	c.tokenMu.RLock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpireAt) {
		defer c.tokenMu.RUnlock()
		return c.accessToken, nil
	}
	c.tokenMu.RUnlock()

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	// Double check
	if c.accessToken != "" && time.Now().Before(c.tokenExpireAt) {
		return c.accessToken, nil
	}

	req := &dingtalkoauth2.GetAccessTokenRequest{
		AppKey:    tea.String(c.Config.ClientID),
		AppSecret: tea.String(c.Config.AppSecret),
	}
	resp, err := c.oauthClient.GetAccessToken(req)
	if err != nil {
		return "", err
	}

	if resp.Body == nil || resp.Body.AccessToken == nil {
		return "", fmt.Errorf("failed to get access token, response body is empty")
	}

	c.accessToken = *resp.Body.AccessToken
	// ExpireIn is seconds. Buffer it by 60s
	expireIn := *resp.Body.ExpireIn
	c.tokenExpireAt = time.Now().Add(time.Duration(expireIn-60) * time.Second)

	return c.accessToken, nil
}

func (c *DingTalkChannel) onChatReceive(ctx context.Context, data *chatbot.BotCallbackDataModel) ([]byte, error) {
	content := strings.TrimSpace(data.Text.Content)
	if content == "" {
		return nil, nil
	}

	senderStaffId := data.SenderStaffId
	if senderStaffId == "" {
		senderStaffId = data.SenderId
	}
	if senderStaffId == "" {
		c.log.Warnw("DingTalk message missing sender id")
		return nil, nil
	}

	if !c.IsAllowed(senderStaffId) {
		c.log.Warnw("DingTalk message from unauthorized user", "sender", senderStaffId)
		return nil, nil
	}

	// conversationType "2" is a group chat; replies there are addressed to
	// the conversation, not the person.
	targetId := senderStaffId
	if data.ConversationType == "2" && data.ConversationId != "" {
		targetId = data.ConversationId
	}

	c.Bus.PublishInbound(bus.InboundMessage{
		Channel:   c.Name(),
		SenderID:  senderStaffId,
		ChatID:    targetId,
		Content:   content,
		Timestamp: time.Now(),
	})

	return nil, nil
}

type dingTalkSampleTextParam struct {
	Content string `json:"content"`
}

// Send delivers a plain text message. Conversation ids starting with "cid"
// go through the group endpoint; everything else is a one-to-one send keyed
// by staff id.
func (c *DingTalkChannel) Send(msg bus.OutboundMessage) (string, error) {
	if msg.Content == "" {
		return "", nil
	}

	token, err := c.getAccessToken()
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}

	if strings.HasPrefix(msg.ChatID, "cid") {
		key, err := c.sendGroup(token, msg)
		if err != nil {
			return "", fmt.Errorf("failed to send dingtalk group message: %w", err)
		}
		return key, nil
	}

	key, err := c.sendOTO(token, msg)
	if err != nil {
		return "", fmt.Errorf("failed to send dingtalk message (OTO): %w", err)
	}
	return key, nil
}

func (c *DingTalkChannel) sendOTO(token string, msg bus.OutboundMessage) (string, error) {
	headers := &dingtalkrobot.BatchSendOTOHeaders{
		XAcsDingtalkAccessToken: tea.String(token),
	}

	param := dingTalkSampleTextParam{Content: msg.Content}
	msgParamBytes, _ := json.Marshal(param)

	req := &dingtalkrobot.BatchSendOTORequest{
		RobotCode: tea.String(c.Config.RobotCode),
		UserIds:   []*string{tea.String(msg.ChatID)},
		MsgKey:    tea.String("sampleText"),
		MsgParam:  tea.String(string(msgParamBytes)),
	}

	resp, err := c.robotClient.BatchSendOTOWithOptions(req, headers, &util.RuntimeOptions{})
	if err != nil {
		return "", err
	}
	if resp.Body != nil && resp.Body.ProcessQueryKey != nil {
		return *resp.Body.ProcessQueryKey, nil
	}
	return "", nil
}

func (c *DingTalkChannel) sendGroup(token string, msg bus.OutboundMessage) (string, error) {
	headers := &dingtalkrobot.OrgGroupSendHeaders{
		XAcsDingtalkAccessToken: tea.String(token),
	}

	param := dingTalkSampleTextParam{Content: msg.Content}
	msgParamBytes, _ := json.Marshal(param)

	req := &dingtalkrobot.OrgGroupSendRequest{
		RobotCode:          tea.String(c.Config.RobotCode),
		OpenConversationId: tea.String(msg.ChatID),
		MsgKey:             tea.String("sampleText"),
		MsgParam:           tea.String(string(msgParamBytes)),
	}

	resp, err := c.robotClient.OrgGroupSendWithOptions(req, headers, &util.RuntimeOptions{})
	if err != nil {
		return "", err
	}
	if resp.Body != nil && resp.Body.ProcessQueryKey != nil {
		return *resp.Body.ProcessQueryKey, nil
	}
	return "", nil
}
