package channels

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ritmohq/ritmo-go/pkg/bus"
	"github.com/ritmohq/ritmo-go/pkg/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramChannel implements the Telegram transport.
type TelegramChannel struct {
	BaseChannel
	Config  *config.TelegramConfig
	bot     *tgbotapi.BotAPI
	running bool
	log     *zap.SugaredLogger
}

// NewTelegramChannel creates a new TelegramChannel.
func NewTelegramChannel(cfg *config.TelegramConfig, messageBus *bus.MessageBus, log *zap.SugaredLogger) *TelegramChannel {
	return &TelegramChannel{
		BaseChannel: BaseChannel{
			Bus:       messageBus,
			AllowFrom: cfg.AllowFrom,
		},
		Config: cfg,
		log:    log,
	}
}

func (c *TelegramChannel) Name() string {
	return "telegram"
}

func (c *TelegramChannel) Start() error {
	if !c.Config.Enabled || c.Config.Token == "" {
		return nil
	}

	var err error
	c.bot, err = tgbotapi.NewBotAPI(c.Config.Token)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	c.log.Infow("Telegram bot authorized", "account", c.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := c.bot.GetUpdatesChan(u)
	c.running = true

	go func() {
		for update := range updates {
			if !c.running {
				break
			}
			if update.Message == nil {
				continue
			}
			c.handleUpdate(update)
		}
	}()

	return nil
}

func (c *TelegramChannel) Stop() error {
	c.running = false
	if c.bot != nil {
		c.bot.StopReceivingUpdates()
	}
	return nil
}

// Send delivers a plain text message and returns the Telegram message id.
func (c *TelegramChannel) Send(msg bus.OutboundMessage) (string, error) {
	if c.bot == nil {
		return "", fmt.Errorf("telegram bot not initialized")
	}

	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat ID: %s", msg.ChatID)
	}

	if msg.Content == "" {
		return "", nil
	}

	sent, err := c.bot.Send(tgbotapi.NewMessage(chatID, msg.Content))
	if err != nil {
		return "", err
	}
	return strconv.Itoa(sent.MessageID), nil
}

func (c *TelegramChannel) handleUpdate(update tgbotapi.Update) {
	msg := update.Message
	senderID := strconv.FormatInt(msg.From.ID, 10)
	if msg.From.UserName != "" {
		senderID = fmt.Sprintf("%s|%s", senderID, msg.From.UserName)
	}

	if !c.IsAllowed(senderID) {
		c.log.Warnw("Telegram message from unauthorized user", "sender", senderID)
		return
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	if msg.Text == "" {
		return
	}

	c.Bus.PublishInbound(bus.InboundMessage{
		Channel:   c.Name(),
		SenderID:  chatID,
		ChatID:    chatID,
		Content:   msg.Text,
		Timestamp: time.Unix(int64(msg.Date), 0),
	})
}
