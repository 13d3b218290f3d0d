// Package policy turns classifier verdicts into enforcement. For each group
// member it drives the state machine clean → warned(n) → banned, removes
// messages from banned or blacklisted members, and aggregates crowd reports
// into video takedowns.
//
// Every platform call is fallible and contained: a failure is logged and
// counted, and the enforcement sequence carries on.
package policy

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/groupguard/internal/config"
	"github.com/whisper/groupguard/internal/enforcement"
	"github.com/whisper/groupguard/internal/events"
	"github.com/whisper/groupguard/internal/metrics"
	"github.com/whisper/groupguard/internal/moderation"
	"github.com/whisper/groupguard/internal/platform"
	"github.com/whisper/groupguard/internal/ratelimit"
)

// cleanupTimeout bounds the delayed deletion of the bot's own notices.
const cleanupTimeout = 10 * time.Second

// Action is what the engine did with a message.
type Action int

const (
	// ActionNone means the message was clean and left alone.
	ActionNone Action = iota
	// ActionIgnored means the chat is not moderated (private chats).
	ActionIgnored
	// ActionExempt means the sender is an admin, or the role lookup failed
	// under the exempt policy.
	ActionExempt
	// ActionRemovedBanned means the sender is banned or blacklisted and the
	// message was removed without classification.
	ActionRemovedBanned
	// ActionDeleted means the message was flagged but the warning could not
	// be recorded.
	ActionDeleted
	// ActionWarned means a warning was recorded.
	ActionWarned
	// ActionBanned means the warning reached the group maximum.
	ActionBanned
)

var actionNames = map[Action]string{
	ActionNone:          "clean",
	ActionIgnored:       "ignored",
	ActionExempt:        "exempt",
	ActionRemovedBanned: "banned_sender",
	ActionDeleted:       "flagged",
	ActionWarned:        "flagged",
	ActionBanned:        "flagged",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "action(" + strconv.Itoa(int(a)) + ")"
}

// Outcome describes how one message was handled.
type Outcome struct {
	Action   Action
	Verdict  moderation.Verdict
	Warnings int
}

// GroupSource resolves the effective settings of a chat. *config.Config
// implements it.
type GroupSource interface {
	Group(chatID int64) config.Group
}

// Options are the engine-wide thresholds.
type Options struct {
	ReportThreshold    int
	NoticeTTL          time.Duration
	BannedNoticeWindow time.Duration
	RoleLookupFailure  config.RoleLookupPolicy
}

// OptionsFromConfig extracts the engine options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ReportThreshold:    cfg.ReportThreshold,
		NoticeTTL:          cfg.NoticeTTL,
		BannedNoticeWindow: cfg.BannedNoticeWindow,
		RoleLookupFailure:  cfg.RoleLookupFailure,
	}
}

// Deps are the collaborators of an Engine. Limiter, Scheduler and Events
// default to an in-process limiter, runtime timers and a discarding sink.
type Deps struct {
	Client     platform.Client
	Store      enforcement.Store
	Classifier *moderation.Classifier
	Groups     GroupSource
	Limiter    ratelimit.Allower
	Scheduler  Scheduler
	Events     events.Sink
	Log        *zap.Logger
}

// Engine applies the enforcement policy. It holds no per-message state and
// is safe for concurrent use; all mutable state lives in the store.
type Engine struct {
	client     platform.Client
	store      enforcement.Store
	classifier *moderation.Classifier
	groups     GroupSource
	limiter    ratelimit.Allower
	scheduler  Scheduler
	sink       events.Sink
	log        *zap.Logger
	opts       Options
	bannedRule ratelimit.Rule
}

// New creates an Engine. Zero options fall back to a report threshold of 2,
// a 30 second notice lifetime and a 10 minute banned-notice window.
func New(deps Deps, opts Options) *Engine {
	if opts.ReportThreshold <= 0 {
		opts.ReportThreshold = 2
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = 30 * time.Second
	}
	if opts.BannedNoticeWindow <= 0 {
		opts.BannedNoticeWindow = 10 * time.Minute
	}
	if opts.RoleLookupFailure == "" {
		opts.RoleLookupFailure = config.RoleLookupEnforce
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewLocalLimiter()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = TimerScheduler{}
	}
	if deps.Events == nil {
		deps.Events = events.Discard
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Engine{
		client:     deps.Client,
		store:      deps.Store,
		classifier: deps.Classifier,
		groups:     deps.Groups,
		limiter:    deps.Limiter,
		scheduler:  deps.Scheduler,
		sink:       deps.Events,
		log:        deps.Log.Named("policy"),
		opts:       opts,
		bannedRule: ratelimit.BannedNotice(opts.BannedNoticeWindow),
	}
}

// HandleText moderates a text message.
func (e *Engine) HandleText(ctx context.Context, msg *platform.Message) Outcome {
	if !msg.Chat.IsGroup() {
		return Outcome{Action: ActionIgnored}
	}
	if out, done := e.gate(ctx, msg); done {
		metrics.MessagesTotal.WithLabelValues("text", out.Action.String()).Inc()
		return out
	}

	g := e.groups.Group(msg.Chat.ID)

	start := time.Now()
	var v moderation.Verdict
	if g.BannedWords != nil {
		v = e.classifier.ClassifyTextWith(msg.Text, g.BannedWords)
	} else {
		v = e.classifier.ClassifyText(msg.Text)
	}
	metrics.ClassifyLatency.Observe(time.Since(start).Seconds())

	if !v.Flagged {
		metrics.MessagesTotal.WithLabelValues("text", ActionNone.String()).Inc()
		return Outcome{Action: ActionNone, Verdict: v}
	}
	metrics.MessagesTotal.WithLabelValues("text", "flagged").Inc()
	return e.enforce(ctx, msg, g, v)
}

// HandleVideo moderates a video message. A clean video gets a report button;
// a video flagged by file name also blacklists the sender.
func (e *Engine) HandleVideo(ctx context.Context, msg *platform.Message) Outcome {
	if !msg.Chat.IsGroup() || msg.Video == nil {
		return Outcome{Action: ActionIgnored}
	}
	if out, done := e.gate(ctx, msg); done {
		metrics.MessagesTotal.WithLabelValues("video", out.Action.String()).Inc()
		return out
	}

	g := e.groups.Group(msg.Chat.ID)

	start := time.Now()
	v := e.classifier.ClassifyVideo(moderation.VideoMeta{
		FileSize: msg.Video.FileSize,
		Duration: msg.Video.Duration,
		FileName: msg.Video.FileName,
	})
	metrics.ClassifyLatency.Observe(time.Since(start).Seconds())

	if !v.Flagged {
		metrics.MessagesTotal.WithLabelValues("video", ActionNone.String()).Inc()
		key := enforcement.MessageKey{ChatID: msg.Chat.ID, MessageID: msg.ID}
		e.send(ctx, msg.Chat.ID, ReportPrompt, platform.SendOptions{
			ReplyTo: msg.ID,
			Buttons: []platform.Button{{Text: ReportButtonText, Data: ReportData(key)}},
		})
		return Outcome{Action: ActionNone, Verdict: v}
	}
	metrics.MessagesTotal.WithLabelValues("video", "flagged").Inc()

	if v.Has(moderation.KindVideoFilename) {
		e.blacklist(ctx, msg, v.Primary().Label)
	}
	return e.enforce(ctx, msg, g, v)
}

// gate runs the checks that precede classification: banned or blacklisted
// senders and admin exemption. done is true when the message needs no
// further processing.
func (e *Engine) gate(ctx context.Context, msg *platform.Message) (Outcome, bool) {
	if e.isRestricted(ctx, msg.Chat.ID, msg.From.ID) {
		e.removeRestricted(ctx, msg)
		return Outcome{Action: ActionRemovedBanned}, true
	}
	if e.isExempt(ctx, msg.Chat.ID, msg.From.ID) {
		return Outcome{Action: ActionExempt}, true
	}
	return Outcome{}, false
}

// isRestricted reports whether the sender is banned or blacklisted. Store
// errors are logged and treated as not restricted.
func (e *Engine) isRestricted(ctx context.Context, chatID, userID int64) bool {
	banned, err := e.store.IsBanned(ctx, chatID, userID)
	if err != nil {
		e.log.Error("ban lookup failed", zap.Int64("chat_id", chatID), zap.Int64("user_id", userID), zap.Error(err))
	}
	if banned {
		return true
	}
	listed, err := e.store.IsBlacklisted(ctx, chatID, userID)
	if err != nil {
		e.log.Error("blacklist lookup failed", zap.Int64("chat_id", chatID), zap.Int64("user_id", userID), zap.Error(err))
	}
	return listed
}

// removeRestricted deletes a restricted member's message and tells the group
// once per burst.
func (e *Engine) removeRestricted(ctx context.Context, msg *platform.Message) {
	e.deleteMessage(ctx, msg.Chat.ID, msg.ID)

	ev := events.New(events.KindBannedMessageRemoved, msg.Chat.ID)
	ev.UserID = msg.From.ID
	ev.Username = msg.From.Handle()
	ev.MessageID = msg.ID
	e.sink.Emit(ctx, ev)

	id := strconv.FormatInt(msg.Chat.ID, 10) + ":" + strconv.FormatInt(msg.From.ID, 10)
	allowed, err := e.limiter.Allow(ctx, id, e.bannedRule)
	if err != nil {
		e.log.Warn("banned notice limiter failed", zap.String("member", id), zap.Error(err))
	}
	if allowed {
		e.send(ctx, msg.Chat.ID, BannedRemovedNotice(msg.From.Handle()), platform.SendOptions{})
	}
}

// isExempt reports whether the sender skips enforcement. A failed lookup
// resolves through the configured RoleLookupPolicy.
func (e *Engine) isExempt(ctx context.Context, chatID, userID int64) bool {
	admin, err := e.client.IsAdmin(ctx, chatID, userID)
	if err == nil {
		return admin
	}

	exempt := e.opts.RoleLookupFailure == config.RoleLookupExempt
	e.platformError("is_admin", err,
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", userID),
		zap.Bool("exempt", exempt))
	return exempt
}

// enforce applies delete, warn and ban for a flagged verdict.
func (e *Engine) enforce(ctx context.Context, msg *platform.Message, g config.Group, v moderation.Verdict) Outcome {
	for _, r := range v.Reasons {
		metrics.ReasonsTotal.WithLabelValues(string(r.Kind)).Inc()
	}
	chatID, user := msg.Chat.ID, msg.From

	if g.AutoDelete && e.deleteMessage(ctx, chatID, msg.ID) {
		ev := events.New(events.KindDeleted, chatID)
		ev.UserID = user.ID
		ev.Username = user.Handle()
		ev.MessageID = msg.ID
		ev.Reason = v.Summary()
		e.sink.Emit(ctx, ev)
	}

	count, err := e.store.IncrWarning(ctx, chatID, user.ID)
	if err != nil {
		e.log.Error("record warning failed",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", user.ID),
			zap.String("reason", v.Summary()),
			zap.Error(err))
		return Outcome{Action: ActionDeleted, Verdict: v}
	}
	metrics.WarningsTotal.Inc()

	e.log.Info("warned",
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", user.ID),
		zap.Int("count", count),
		zap.Int("max", g.MaxWarnings),
		zap.String("reason", v.Summary()))

	ev := events.New(events.KindWarned, chatID)
	ev.UserID = user.ID
	ev.Username = user.Handle()
	ev.MessageID = msg.ID
	ev.Reason = v.Summary()
	ev.Count = count
	e.sink.Emit(ctx, ev)

	notice := WarningNotice(user.Handle(), v.Primary().Label, count, g.MaxWarnings)
	if id, ok := e.send(ctx, chatID, notice, platform.SendOptions{ReplyTo: msg.ID}); ok {
		e.scheduleCleanup(chatID, id)
	}

	out := Outcome{Action: ActionWarned, Verdict: v, Warnings: count}
	if count >= g.MaxWarnings {
		e.ban(ctx, msg, count)
		out.Action = ActionBanned
	}

	if g.AdminNotifications {
		e.notifyAdmins(ctx, chatID, AdminAlert(chatName(msg.Chat), user.Handle(), v.Summary(), count))
	}
	return out
}

// ban removes the member through the platform and records the ban. The ban
// set is updated even when the platform call fails; the notice goes out only
// the first time the member is added.
func (e *Engine) ban(ctx context.Context, msg *platform.Message, count int) {
	chatID, user := msg.Chat.ID, msg.From

	if err := e.client.BanMember(ctx, chatID, user.ID); err != nil {
		e.platformError("ban", err, zap.Int64("chat_id", chatID), zap.Int64("user_id", user.ID))
	}

	added, err := e.store.Ban(ctx, chatID, user.ID)
	if err != nil {
		e.log.Error("record ban failed", zap.Int64("chat_id", chatID), zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	if !added {
		return
	}
	metrics.BansTotal.Inc()

	e.log.Info("banned", zap.Int64("chat_id", chatID), zap.Int64("user_id", user.ID), zap.Int("count", count))

	ev := events.New(events.KindBanned, chatID)
	ev.UserID = user.ID
	ev.Username = user.Handle()
	ev.Count = count
	ev.Reason = "max warnings reached"
	e.sink.Emit(ctx, ev)

	e.send(ctx, chatID, BannedNotice(user.Handle()), platform.SendOptions{})
}

// blacklist records a member whose video was flagged by file name.
func (e *Engine) blacklist(ctx context.Context, msg *platform.Message, reason string) {
	added, err := e.store.Blacklist(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		e.log.Error("record blacklist failed",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int64("user_id", msg.From.ID),
			zap.Error(err))
		return
	}
	if !added {
		return
	}
	ev := events.New(events.KindBlacklisted, msg.Chat.ID)
	ev.UserID = msg.From.ID
	ev.Username = msg.From.Handle()
	ev.MessageID = msg.ID
	ev.Reason = reason
	e.sink.Emit(ctx, ev)
}

// scheduleCleanup removes a bot notice after the notice lifetime. Failures
// are silent; the notice may already be gone.
func (e *Engine) scheduleCleanup(chatID int64, messageID int) {
	e.scheduler.AfterFunc(e.opts.NoticeTTL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if err := e.client.DeleteMessage(ctx, chatID, messageID); err != nil {
			e.log.Debug("notice cleanup failed",
				zap.Int64("chat_id", chatID),
				zap.Int("message_id", messageID),
				zap.Error(err))
		}
	})
}

// notifyAdmins sends text privately to every human administrator.
func (e *Engine) notifyAdmins(ctx context.Context, chatID int64, text string) {
	admins, err := e.client.Administrators(ctx, chatID)
	if err != nil {
		e.platformError("administrators", err, zap.Int64("chat_id", chatID))
		return
	}
	for _, a := range admins {
		if a.IsBot {
			continue
		}
		e.send(ctx, a.ID, text, platform.SendOptions{})
	}
}

func (e *Engine) deleteMessage(ctx context.Context, chatID int64, messageID int) bool {
	if err := e.client.DeleteMessage(ctx, chatID, messageID); err != nil {
		e.platformError("delete", err, zap.Int64("chat_id", chatID), zap.Int("message_id", messageID))
		return false
	}
	return true
}

func (e *Engine) send(ctx context.Context, chatID int64, text string, opts platform.SendOptions) (int, bool) {
	id, err := e.client.SendMessage(ctx, chatID, text, opts)
	if err != nil {
		e.platformError("send", err, zap.Int64("chat_id", chatID))
		return 0, false
	}
	return id, true
}

func (e *Engine) platformError(op string, err error, fields ...zap.Field) {
	metrics.PlatformErrorsTotal.WithLabelValues(op).Inc()
	e.log.Warn("platform call failed", append(fields, zap.String("op", op), zap.Error(err))...)
}

func chatName(c platform.Chat) string {
	if c.Title != "" {
		return c.Title
	}
	return strconv.FormatInt(c.ID, 10)
}
