// Package bot wires platform updates to the moderation policy, the Q&A
// matcher and the member-facing commands.
package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/whisper/groupguard/internal/config"
	"github.com/whisper/groupguard/internal/enforcement"
	"github.com/whisper/groupguard/internal/faq"
	"github.com/whisper/groupguard/internal/metrics"
	"github.com/whisper/groupguard/internal/platform"
	"github.com/whisper/groupguard/internal/policy"
)

// Callback data prefixes of the bot's own buttons.
const (
	faqPrefix      = "faq:"
	settingsPrefix = "settings:"
)

// Bot holds the collaborators shared by every handler.
type Bot struct {
	engine   *policy.Engine
	faq      *faq.Matcher
	client   platform.Client
	store    enforcement.Store
	groups   policy.GroupSource
	settings *config.Overrides
	log      *zap.Logger
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Engine *policy.Engine
	FAQ    *faq.Matcher
	Client platform.Client
	Store  enforcement.Store
	Groups policy.GroupSource

	// Settings receives changes made with /settings and /setwelcome. When
	// Groups is nil it also serves reads.
	Settings *config.Overrides
	Log      *zap.Logger
}

// New creates a Bot.
func New(deps Deps) *Bot {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Groups == nil && deps.Settings != nil {
		deps.Groups = deps.Settings
	}
	return &Bot{
		engine:   deps.Engine,
		faq:      deps.FAQ,
		client:   deps.Client,
		store:    deps.Store,
		groups:   deps.Groups,
		settings: deps.Settings,
		log:      deps.Log.Named("bot"),
	}
}

// Register installs the bot's handlers and commands on d.
func (b *Bot) Register(d *Dispatcher) {
	d.Register(KindText, b.handleText)
	d.Register(KindVideo, b.handleVideo)
	d.Register(KindCallback, b.handleCallback)
	d.Register(KindNewMembers, b.handleNewMembers)
	d.FilterCommands(b.moderateCommand)

	d.RegisterCommand("start", b.replyStatic(startText))
	d.RegisterCommand("help", b.replyStatic(helpText))
	d.RegisterCommand("faq", b.cmdFAQ)
	d.RegisterCommand("oil", b.replyTopic("oil"))
	d.RegisterCommand("service", b.replyTopic("service"))
	d.RegisterCommand("parts", b.replyTopic("parts"))
	d.RegisterCommand("stats", b.cmdStats)
	d.RegisterCommand("warnings", b.cmdWarnings)
	d.RegisterCommand("dealers", b.cmdDealers)
	d.RegisterCommand("settings", b.cmdSettings)
	d.RegisterCommand("setwelcome", b.cmdSetWelcome)
}

// handleText moderates a text message and answers it when it is a clean
// domain question.
func (b *Bot) handleText(ctx context.Context, u platform.Update) {
	msg := u.Message
	out := b.engine.HandleText(ctx, msg)

	if !passed(out) {
		return
	}
	answer, ok := b.faq.Match(msg.Text)
	if !ok {
		return
	}
	metrics.FAQAnswersTotal.WithLabelValues(answer.Topic).Inc()
	b.log.Debug("answered question",
		zap.Int64("chat_id", msg.Chat.ID),
		zap.Int("message_id", msg.ID),
		zap.String("topic", answer.Topic))
	b.reply(ctx, msg, answer.Text)
}

// moderateCommand runs command messages through the text policy. Commands
// from restricted senders and commands carrying flagged text are not routed.
func (b *Bot) moderateCommand(ctx context.Context, u platform.Update) bool {
	return passed(b.engine.HandleText(ctx, u.Message))
}

// passed reports whether a message survived moderation untouched.
func passed(out policy.Outcome) bool {
	switch out.Action {
	case policy.ActionNone, policy.ActionExempt, policy.ActionIgnored:
		return true
	}
	return false
}

func (b *Bot) handleVideo(ctx context.Context, u platform.Update) {
	b.engine.HandleVideo(ctx, u.Message)
}

// handleCallback routes button presses to the report flow or the FAQ menu.
func (b *Bot) handleCallback(ctx context.Context, u platform.Update) {
	cb := u.Callback
	switch {
	case policy.IsReportData(cb.Data):
		b.engine.HandleReport(ctx, cb)
	case strings.HasPrefix(cb.Data, faqPrefix):
		b.answerFAQButton(ctx, cb)
	case strings.HasPrefix(cb.Data, settingsPrefix):
		b.toggleSetting(ctx, cb)
	default:
		b.answer(ctx, cb.ID, "")
	}
}

// handleNewMembers greets every human joining a group.
func (b *Bot) handleNewMembers(ctx context.Context, u platform.Update) {
	msg := u.Message
	if !msg.Chat.IsGroup() {
		return
	}
	g := b.groups.Group(msg.Chat.ID)
	for _, m := range msg.NewMembers {
		if m.IsBot {
			continue
		}
		name := m.FirstName
		if name == "" {
			name = m.Handle()
		}
		b.send(ctx, msg.Chat.ID, g.Welcome(name), platform.SendOptions{})
	}
}

func (b *Bot) answerFAQButton(ctx context.Context, cb *platform.Callback) {
	id := strings.TrimPrefix(cb.Data, faqPrefix)
	answer, ok := b.faq.Topic(id)
	if !ok {
		b.answer(ctx, cb.ID, noTopicText)
		return
	}
	b.answer(ctx, cb.ID, "")
	if cb.Message == nil {
		return
	}
	b.send(ctx, cb.Message.Chat.ID, answer.Text, platform.SendOptions{})
}

// isAdmin reports whether the sender administers the chat. Lookup failures
// deny.
func (b *Bot) isAdmin(ctx context.Context, msg *platform.Message) bool {
	if !msg.Chat.IsGroup() {
		return false
	}
	return b.isAdminOf(ctx, msg.Chat.ID, msg.From.ID)
}

func (b *Bot) isAdminOf(ctx context.Context, chatID, userID int64) bool {
	ok, err := b.client.IsAdmin(ctx, chatID, userID)
	if err != nil {
		metrics.PlatformErrorsTotal.WithLabelValues("is_admin").Inc()
		b.log.Warn("admin check failed",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return false
	}
	return ok
}

func (b *Bot) reply(ctx context.Context, msg *platform.Message, text string) {
	b.send(ctx, msg.Chat.ID, text, platform.SendOptions{ReplyTo: msg.ID})
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, opts platform.SendOptions) {
	if _, err := b.client.SendMessage(ctx, chatID, text, opts); err != nil {
		metrics.PlatformErrorsTotal.WithLabelValues("send").Inc()
		b.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if err := b.client.AnswerCallback(ctx, callbackID, text); err != nil {
		metrics.PlatformErrorsTotal.WithLabelValues("answer").Inc()
		b.log.Warn("answer callback failed", zap.String("callback_id", callbackID), zap.Error(err))
	}
}
