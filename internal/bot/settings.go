package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/whisper/groupguard/internal/config"
	"github.com/whisper/groupguard/internal/platform"
)

// Settings button ids, after settingsPrefix.
const (
	settingAutoDelete         = "auto_delete"
	settingAdminNotifications = "admin_notifications"
)

const (
	noSettingsText   = "تعديل الإعدادات غير متاح حالياً."
	noDealersText    = "لا توجد بيانات وكلاء متاحة حالياً."
	welcomeResetText = "✅ تمت استعادة رسالة الترحيب الافتراضية."
	welcomeSetText   = "✅ تم تحديث رسالة الترحيب:\n\n%s"
)

func onOff(v bool) string {
	if v {
		return "✅ مفعل"
	}
	return "❌ معطل"
}

// settingsPanel renders the effective settings of a group.
func settingsPanel(g config.Group) (string, []platform.Button) {
	words := "القائمة الافتراضية"
	if g.BannedWords != nil {
		words = fmt.Sprintf("%d كلمة", len(g.BannedWords))
	}

	var sb strings.Builder
	sb.WriteString("⚙️ إعدادات المجموعة\n\n")
	fmt.Fprintf(&sb, "• الحد الأقصى للتحذيرات: %d\n", g.MaxWarnings)
	fmt.Fprintf(&sb, "• حذف الرسائل المشبوهة: %s\n", onOff(g.AutoDelete))
	fmt.Fprintf(&sb, "• تنبيه الإدارة: %s\n", onOff(g.AdminNotifications))
	fmt.Fprintf(&sb, "• الكلمات المحظورة: %s\n\n", words)
	sb.WriteString("📝 لتغيير رسالة الترحيب: /setwelcome النص، واستخدم {name} لاسم العضو")

	buttons := []platform.Button{
		{Text: "🔄 حذف الرسائل المشبوهة: " + onOff(g.AutoDelete), Data: settingsPrefix + settingAutoDelete},
		{Text: "🔔 تنبيه الإدارة: " + onOff(g.AdminNotifications), Data: settingsPrefix + settingAdminNotifications},
	}
	return sb.String(), buttons
}

// cmdSettings shows the settings panel to an admin.
func (b *Bot) cmdSettings(ctx context.Context, u platform.Update) {
	msg := u.Message
	if !b.requireAdmin(ctx, msg) {
		return
	}
	text, buttons := settingsPanel(b.groups.Group(msg.Chat.ID))
	if b.settings == nil {
		buttons = nil
	}
	b.send(ctx, msg.Chat.ID, text, platform.SendOptions{ReplyTo: msg.ID, Buttons: buttons})
}

// toggleSetting flips one setting from a panel button. Only admins of the
// chat holding the panel may press it.
func (b *Bot) toggleSetting(ctx context.Context, cb *platform.Callback) {
	if b.settings == nil || cb.Message == nil || !cb.Message.Chat.IsGroup() {
		b.answer(ctx, cb.ID, noSettingsText)
		return
	}
	chatID := cb.Message.Chat.ID
	if !b.isAdminOf(ctx, chatID, cb.From.ID) {
		b.answer(ctx, cb.ID, adminOnlyText)
		return
	}

	var (
		g     config.Group
		label string
		value bool
	)
	switch strings.TrimPrefix(cb.Data, settingsPrefix) {
	case settingAutoDelete:
		g = b.settings.ToggleAutoDelete(chatID)
		label, value = "حذف الرسائل المشبوهة", g.AutoDelete
	case settingAdminNotifications:
		g = b.settings.ToggleAdminNotifications(chatID)
		label, value = "تنبيه الإدارة", g.AdminNotifications
	default:
		b.answer(ctx, cb.ID, noSettingsText)
		return
	}

	b.log.Info("group setting changed",
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", cb.From.ID),
		zap.String("setting", strings.TrimPrefix(cb.Data, settingsPrefix)),
		zap.Bool("value", value))
	b.answer(ctx, cb.ID, label+": "+onOff(value))

	text, buttons := settingsPanel(g)
	b.send(ctx, chatID, text, platform.SendOptions{Buttons: buttons})
}

// cmdSetWelcome replaces the group's welcome message. Without text it
// restores the configured one.
func (b *Bot) cmdSetWelcome(ctx context.Context, u platform.Update) {
	msg := u.Message
	if !b.requireAdmin(ctx, msg) {
		return
	}
	if b.settings == nil {
		b.reply(ctx, msg, noSettingsText)
		return
	}
	text := strings.TrimSpace(msg.CommandArg)
	g := b.settings.SetWelcome(msg.Chat.ID, text)
	b.log.Info("welcome message changed",
		zap.Int64("chat_id", msg.Chat.ID),
		zap.Int64("user_id", msg.From.ID),
		zap.Bool("reset", text == ""))
	if text == "" {
		b.reply(ctx, msg, welcomeResetText)
		return
	}
	b.reply(ctx, msg, fmt.Sprintf(welcomeSetText, g.WelcomeMessage))
}

// cmdDealers lists the dealer directory.
func (b *Bot) cmdDealers(ctx context.Context, u platform.Update) {
	dealers := b.faq.Dealers()
	if len(dealers) == 0 {
		b.reply(ctx, u.Message, noDealersText)
		return
	}
	var sb strings.Builder
	sb.WriteString("🏪 وكلاء مرسيدس في السعودية:\n")
	for _, d := range dealers {
		fmt.Fprintf(&sb, "\n🚗 %s\n", d.Name)
		fmt.Fprintf(&sb, "📍 المدينة: %s\n", d.City)
		fmt.Fprintf(&sb, "📞 الهاتف: %s\n", d.Phone)
		if len(d.Services) > 0 {
			fmt.Fprintf(&sb, "🛠️ الخدمات: %s\n", strings.Join(d.Services, "، "))
		}
		fmt.Fprintf(&sb, "⭐ التقييم: %.1f/5\n", d.Rating)
	}
	b.reply(ctx, u.Message, strings.TrimRight(sb.String(), "\n"))
}
