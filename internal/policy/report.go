package policy

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/whisper/groupguard/internal/enforcement"
	"github.com/whisper/groupguard/internal/events"
	"github.com/whisper/groupguard/internal/metrics"
	"github.com/whisper/groupguard/internal/platform"
)

// reportPrefix marks report button callback data.
const reportPrefix = "report:"

// ReportData is the callback payload of the report button for key.
func ReportData(key enforcement.MessageKey) string {
	return reportPrefix + key.String()
}

// IsReportData reports whether callback data belongs to a report button.
func IsReportData(data string) bool {
	return strings.HasPrefix(data, reportPrefix)
}

// ParseReportData extracts the message key from report callback data.
func ParseReportData(data string) (enforcement.MessageKey, bool) {
	rest, ok := strings.CutPrefix(data, reportPrefix)
	if !ok {
		return enforcement.MessageKey{}, false
	}
	key, err := enforcement.ParseMessageKey(rest)
	if err != nil {
		return enforcement.MessageKey{}, false
	}
	return key, true
}

// ReportOutcome describes how one report activation was handled.
type ReportOutcome struct {
	Count        int
	Duplicate    bool
	Removed      bool
	RemoveFailed bool
}

// HandleReport records a member's report against a video. When the number of
// distinct reporters first equals the threshold the video is deleted and the
// group and admins are told. Later reports only update the count. Reports
// never change the sender's warnings.
//
// The key in the callback data must name the video the button message
// replies to, in the chat the button was pressed in.
func (e *Engine) HandleReport(ctx context.Context, cb *platform.Callback) ReportOutcome {
	key, ok := ParseReportData(cb.Data)
	if !ok || !reportTarget(cb, key) {
		e.log.Warn("rejected report",
			zap.String("data", cb.Data),
			zap.Int64("reporter_id", cb.From.ID))
		e.answer(ctx, cb.ID, InvalidReportText)
		return ReportOutcome{}
	}

	count, added, err := e.store.AddReport(ctx, key, cb.From.ID)
	if err != nil {
		e.log.Error("record report failed",
			zap.String("message", key.String()),
			zap.Int64("reporter_id", cb.From.ID),
			zap.Error(err))
		e.answer(ctx, cb.ID, ReportFailedText)
		return ReportOutcome{}
	}
	if !added {
		e.answer(ctx, cb.ID, AlreadyReportedText)
		return ReportOutcome{Count: count, Duplicate: true}
	}
	metrics.VideoReportsTotal.Inc()

	ev := events.New(events.KindVideoReported, key.ChatID)
	ev.UserID = cb.From.ID
	ev.Username = cb.From.Handle()
	ev.MessageID = key.MessageID
	ev.Count = count
	e.sink.Emit(ctx, ev)

	e.answer(ctx, cb.ID, ReportRecorded(min(count, e.opts.ReportThreshold), e.opts.ReportThreshold))

	out := ReportOutcome{Count: count}
	if count != e.opts.ReportThreshold {
		return out
	}

	if !e.deleteMessage(ctx, key.ChatID, key.MessageID) {
		ev := events.New(events.KindVideoRemoveFailed, key.ChatID)
		ev.MessageID = key.MessageID
		ev.Count = count
		e.sink.Emit(ctx, ev)

		e.send(ctx, key.ChatID, VideoRemoveFailedMsg, platform.SendOptions{})
		out.RemoveFailed = true
		return out
	}
	out.Removed = true

	if _, err := e.store.IncrDeletedVideos(ctx); err != nil {
		e.log.Error("count deleted video failed", zap.Error(err))
	}
	metrics.VideosDeletedTotal.Inc()

	e.log.Info("video removed by reports",
		zap.Int64("chat_id", key.ChatID),
		zap.Int("message_id", key.MessageID),
		zap.Int("count", count))

	ev = events.New(events.KindVideoRemoved, key.ChatID)
	ev.MessageID = key.MessageID
	ev.Count = count
	ev.UserID = cb.Message.ReplyTo.From.ID
	ev.Username = cb.Message.ReplyTo.From.Handle()
	e.sink.Emit(ctx, ev)

	e.send(ctx, key.ChatID, VideoRemovedNotice(count), platform.SendOptions{})
	e.notifyAdmins(ctx, key.ChatID, VideoRemovedAdminAlert(chatName(cb.Message.Chat), count))
	return out
}

// reportTarget reports whether key identifies the video that the button
// message of cb was posted under.
func reportTarget(cb *platform.Callback, key enforcement.MessageKey) bool {
	m := cb.Message
	if m == nil || m.ReplyTo == nil || m.ReplyTo.Video == nil {
		return false
	}
	return m.Chat.ID == key.ChatID && m.ReplyTo.ID == key.MessageID
}

func (e *Engine) answer(ctx context.Context, callbackID, text string) {
	if err := e.client.AnswerCallback(ctx, callbackID, text); err != nil {
		e.platformError("answer", err, zap.String("callback_id", callbackID))
	}
}
