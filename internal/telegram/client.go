// Package telegram adapts the Telegram Bot API to the platform interfaces.
// Outbound calls share one token-bucket limiter so bursts of enforcement
// traffic stay under the API's flood limits.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/whisper/groupguard/internal/platform"
)

// DefaultRate is the outbound request rate per second.
const DefaultRate = 25

// API is the subset of *tgbotapi.BotAPI used by Client.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
}

// Client implements platform.Client over the Bot API.
type Client struct {
	api     API
	limiter *rate.Limiter
	log     *zap.Logger
}

var _ platform.Client = (*Client)(nil)

// NewClient wraps api. perSecond <= 0 selects DefaultRate.
func NewClient(api API, perSecond float64, log *zap.Logger) *Client {
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	if log == nil {
		log = zap.NewNop()
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		log:     log.Named("telegram"),
	}
}

func (c *Client) wait(ctx context.Context, op string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram: %s: %w", op, err)
	}
	return nil
}

// SendMessage sends text to chatID. A reply target that no longer exists
// does not fail the send.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts platform.SendOptions) (int, error) {
	if err := c.wait(ctx, "send"); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if opts.ReplyTo != 0 {
		msg.ReplyToMessageID = opts.ReplyTo
		msg.AllowSendingWithoutReply = true
	}
	if len(opts.Buttons) > 0 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(opts.Buttons))
		for _, b := range opts.Buttons {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}

	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram: send to %d: %w", chatID, err)
	}
	return sent.MessageID, nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := c.wait(ctx, "delete"); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("telegram: delete %d:%d: %w", chatID, messageID, err)
	}
	return nil
}

// BanMember removes a member from the chat permanently.
func (c *Client) BanMember(ctx context.Context, chatID, userID int64) error {
	if err := c.wait(ctx, "ban"); err != nil {
		return err
	}
	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
	}
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("telegram: ban %d in %d: %w", userID, chatID, err)
	}
	return nil
}

// IsAdmin reports whether userID is the creator or an administrator of chatID.
func (c *Client) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if err := c.wait(ctx, "is_admin"); err != nil {
		return false, err
	}
	m, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return false, fmt.Errorf("telegram: member %d in %d: %w", userID, chatID, err)
	}
	return m.IsCreator() || m.IsAdministrator(), nil
}

// Administrators lists the chat's administrators, bots included.
func (c *Client) Administrators(ctx context.Context, chatID int64) ([]platform.User, error) {
	if err := c.wait(ctx, "administrators"); err != nil {
		return nil, err
	}
	members, err := c.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: administrators of %d: %w", chatID, err)
	}
	out := make([]platform.User, 0, len(members))
	for _, m := range members {
		if m.User == nil {
			continue
		}
		out = append(out, convertUser(m.User))
	}
	return out, nil
}

// AnswerCallback acknowledges a button press with a short toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := c.wait(ctx, "answer"); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("telegram: answer callback: %w", err)
	}
	return nil
}
