package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/whisper/groupguard/internal/platform"
)

const (
	startText = "🚗 أهلاً بك في بوت نادي مالكي مرسيدس\n\n" +
		"🤖 أنا هنا لمساعدتك في:\n" +
		"• الإجابة على أسئلة السيارات\n" +
		"• إدارة المجموعة\n" +
		"• منع الرسائل المشبوهة\n" +
		"• تقديم نصائح الصيانة\n\n" +
		"📝 الأوامر المتاحة:\n" +
		"/help - قائمة الأوامر\n" +
		"/faq - أسئلة شائعة عن مرسيدس\n" +
		"/dealers - وكلاء مرسيدس في السعودية\n\n" +
		"🔧 للمساعدة التقنية، أرسل رسالة تحتوي على مشكلتك مع سيارتك"

	helpText = "📋 قائمة الأوامر - بوت مرسيدس\n\n" +
		"👥 للأعضاء:\n" +
		"/start - بدء استخدام البوت\n" +
		"/help - هذه الرسالة\n" +
		"/faq - أسئلة شائعة عن مرسيدس\n" +
		"/oil - معلومات عن زيت المحرك\n" +
		"/service - معلومات عن الصيانة\n" +
		"/parts - أماكن شراء قطع الغيار\n" +
		"/dealers - وكلاء مرسيدس في السعودية\n\n" +
		"🛠️ للإدارة فقط:\n" +
		"/stats - إحصائيات المجموعة\n" +
		"/warnings - عرض تحذيرات عضو (بالرد على رسالته)\n" +
		"/settings - إعدادات المجموعة\n" +
		"/setwelcome - تعديل رسالة الترحيب\n\n" +
		"💡 نصيحة: يمكنك كتابة مشكلتك مع أي سيارة وسأحاول مساعدتك!"

	faqMenuText    = "🤔 اختر نوع السؤال الذي تريد معرفة إجابته:"
	noTopicText    = "معذرة، لم أجد معلومات لهذا القسم."
	adminOnlyText  = "هذا الأمر للإدارة فقط."
	groupOnlyText  = "هذا الأمر يعمل في المجموعات فقط."
	replyToText    = "استخدم هذا الأمر بالرد على رسالة العضو."
	storeErrorText = "تعذر قراءة البيانات، حاول لاحقاً."
)

// replyStatic returns a command handler that replies with a fixed text.
func (b *Bot) replyStatic(text string) Handler {
	return func(ctx context.Context, u platform.Update) {
		b.reply(ctx, u.Message, text)
	}
}

// replyTopic returns a command handler that replies with a FAQ topic.
func (b *Bot) replyTopic(id string) Handler {
	return func(ctx context.Context, u platform.Update) {
		answer, ok := b.faq.Topic(id)
		if !ok {
			b.reply(ctx, u.Message, noTopicText)
			return
		}
		b.reply(ctx, u.Message, answer.Text)
	}
}

// cmdFAQ shows one button per topic.
func (b *Bot) cmdFAQ(ctx context.Context, u platform.Update) {
	topics := b.faq.Topics()
	buttons := make([]platform.Button, 0, len(topics))
	for _, t := range topics {
		buttons = append(buttons, platform.Button{Text: t.Title, Data: faqPrefix + t.Topic})
	}
	b.send(ctx, u.Message.Chat.ID, faqMenuText, platform.SendOptions{
		ReplyTo: u.Message.ID,
		Buttons: buttons,
	})
}

// cmdStats reports the enforcement totals to an admin.
func (b *Bot) cmdStats(ctx context.Context, u platform.Update) {
	msg := u.Message
	if !b.requireAdmin(ctx, msg) {
		return
	}
	st, err := b.store.Stats(ctx)
	if err != nil {
		b.log.Error("load stats failed", zap.Error(err))
		b.reply(ctx, msg, storeErrorText)
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 إحصائيات البوت\n\n")
	fmt.Fprintf(&sb, "⚠️ التحذيرات: %d\n", st.Warnings)
	fmt.Fprintf(&sb, "🚫 المحظورون: %d\n", st.Banned)
	fmt.Fprintf(&sb, "⛔ القائمة السوداء: %d\n", st.Blacklisted)
	fmt.Fprintf(&sb, "🚩 فيديوهات مبلغ عنها: %d\n", st.ReportedVideos)
	fmt.Fprintf(&sb, "🗑️ فيديوهات محذوفة: %d", st.DeletedVideos)
	b.reply(ctx, msg, sb.String())
}

// cmdWarnings shows the warning count of the member whose message the admin
// replied to.
func (b *Bot) cmdWarnings(ctx context.Context, u platform.Update) {
	msg := u.Message
	if !b.requireAdmin(ctx, msg) {
		return
	}
	if msg.ReplyTo == nil {
		b.reply(ctx, msg, replyToText)
		return
	}
	target := msg.ReplyTo.From
	n, err := b.store.Warnings(ctx, msg.Chat.ID, target.ID)
	if err != nil {
		b.log.Error("load warnings failed",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int64("user_id", target.ID),
			zap.Error(err))
		b.reply(ctx, msg, storeErrorText)
		return
	}
	limit := b.groups.Group(msg.Chat.ID).MaxWarnings
	b.reply(ctx, msg, fmt.Sprintf("⚠️ تحذيرات العضو @%s: %d من %d", target.Handle(), n, limit))
}

// requireAdmin replies with a refusal and returns false unless the sender is
// a group admin.
func (b *Bot) requireAdmin(ctx context.Context, msg *platform.Message) bool {
	if !msg.Chat.IsGroup() {
		b.reply(ctx, msg, groupOnlyText)
		return false
	}
	if !b.isAdmin(ctx, msg) {
		b.reply(ctx, msg, adminOnlyText)
		return false
	}
	return true
}
