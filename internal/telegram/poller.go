package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/whisper/groupguard/internal/platform"
)

// pollTimeout is the long-poll timeout in seconds.
const pollTimeout = 60

// Connect authenticates with the Bot API and routes the library's own
// logging through log.
func Connect(token string, log *zap.Logger) (*tgbotapi.BotAPI, error) {
	if err := tgbotapi.SetLogger(zap.NewStdLog(log.Named("tgbotapi"))); err != nil {
		return nil, fmt.Errorf("telegram: set logger: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	log.Info("authorized", zap.String("bot", bot.Self.UserName), zap.Int64("bot_id", bot.Self.ID))
	return bot, nil
}

// Poller long-polls the Bot API and converts updates to platform updates.
type Poller struct {
	bot *tgbotapi.BotAPI
	log *zap.Logger
}

// NewPoller creates a Poller for bot.
func NewPoller(bot *tgbotapi.BotAPI, log *zap.Logger) *Poller {
	return &Poller{bot: bot, log: log.Named("poller")}
}

// Run delivers updates to out until ctx is cancelled. Updates the bot does
// not handle are dropped.
func (p *Poller) Run(ctx context.Context, out chan<- platform.Update) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	updates := p.bot.GetUpdatesChan(cfg)
	defer p.bot.StopReceivingUpdates()

	p.log.Info("polling started")
	for {
		select {
		case <-ctx.Done():
			p.log.Info("polling stopped")
			return nil
		case u, ok := <-updates:
			if !ok {
				return fmt.Errorf("telegram: update channel closed")
			}
			pu, ok := ConvertUpdate(u, p.bot.Self.UserName)
			if !ok {
				continue
			}
			select {
			case out <- pu:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// ConvertUpdate maps a Bot API update. self is the bot's username; commands
// addressed to another bot with /cmd@name are kept as plain text. ok is false
// for update types the bot ignores.
func ConvertUpdate(u tgbotapi.Update, self string) (platform.Update, bool) {
	pu := platform.Update{ID: u.UpdateID}
	switch {
	case u.Message != nil:
		pu.Message = convertMessage(u.Message, self)
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		cb := &platform.Callback{ID: q.ID, Data: q.Data}
		if q.From != nil {
			cb.From = convertUser(q.From)
		}
		if q.Message != nil {
			cb.Message = convertMessage(q.Message, self)
		}
		pu.Callback = cb
	default:
		return platform.Update{}, false
	}
	return pu, true
}

func convertMessage(m *tgbotapi.Message, self string) *platform.Message {
	msg := &platform.Message{
		ID:   m.MessageID,
		Text: m.Text,
		Date: time.Unix(int64(m.Date), 0).UTC(),
	}
	if m.Chat != nil {
		msg.Chat = platform.Chat{ID: m.Chat.ID, Type: platform.ChatType(m.Chat.Type), Title: m.Chat.Title}
	}
	if m.From != nil {
		msg.From = convertUser(m.From)
	}
	if m.IsCommand() && addressedTo(m.CommandWithAt(), self) {
		msg.Command = m.Command()
		msg.CommandArg = m.CommandArguments()
	}
	if m.Video != nil {
		msg.Video = &platform.Video{
			FileID:   m.Video.FileID,
			FileName: m.Video.FileName,
			FileSize: int64(m.Video.FileSize),
			Duration: time.Duration(m.Video.Duration) * time.Second,
		}
		if msg.Text == "" {
			msg.Text = m.Caption
		}
	}
	if m.ReplyToMessage != nil {
		msg.ReplyTo = convertMessage(m.ReplyToMessage, self)
	}
	for i := range m.NewChatMembers {
		msg.NewMembers = append(msg.NewMembers, convertUser(&m.NewChatMembers[i]))
	}
	return msg
}

// addressedTo reports whether a command, as written with its optional
// @username suffix, is meant for the bot named self.
func addressedTo(command, self string) bool {
	_, name, ok := strings.Cut(command, "@")
	if !ok || self == "" {
		return true
	}
	return strings.EqualFold(name, self)
}

func convertUser(u *tgbotapi.User) platform.User {
	return platform.User{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		IsBot:     u.IsBot,
	}
}
