package policy

import (
	"strconv"
	"strings"
)

// Group-facing notices. {placeholders} are filled by render.
const (
	warningTemplate = "⚠️ تحذير رقم {count} للعضو @{username}\n" +
		"السبب: {reason}\n" +
		"الحد الأقصى للتحذيرات قبل الحظر: {max_warnings}"
	bannedTemplate         = "🚫 تم حظر العضو @{username} بسبب التحذيرات المتكررة"
	bannedRemovedTemplate  = "🗑️ تم حذف رسالة من العضو المحظور @{username}"
	adminAlertTemplate     = "🚨 تنبيه للإدارة\nالمجموعة: {chat}\nالعضو: @{username}\nالمخالفة: {violation}\nعدد التحذيرات: {count}"
	reportRecordedTemplate = "✅ تم تسجيل بلاغك ({count}/{threshold})"
	videoRemovedTemplate   = "🗑️ تم حذف فيديو بعد {count} بلاغات من الأعضاء"
	videoAdminTemplate     = "🚨 تنبيه للإدارة\nالمجموعة: {chat}\nتم حذف فيديو بعد {count} بلاغات من الأعضاء"

	// ReportPrompt accompanies every video that passes classification.
	ReportPrompt = "📹 إذا كان هذا الفيديو غير مناسب يمكنك الإبلاغ عنه"
	// ReportButtonText labels the report button.
	ReportButtonText = "🚩 إبلاغ"

	AlreadyReportedText  = "لقد أبلغت عن هذا الفيديو مسبقاً"
	ReportFailedText     = "تعذر تسجيل البلاغ، حاول لاحقاً"
	InvalidReportText    = "بلاغ غير صالح"
	VideoRemoveFailedMsg = "⚠️ تعذر حذف الفيديو: ربما حُذف مسبقاً أو لا توجد صلاحية"
)

// render substitutes {key} placeholders from pairs of key, value.
func render(tmpl string, kv ...string) string {
	r := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		r = append(r, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(r...).Replace(tmpl)
}

// WarningNotice is the reply sent after a flagged message.
func WarningNotice(username, reason string, count, maxWarnings int) string {
	return render(warningTemplate,
		"count", strconv.Itoa(count),
		"username", username,
		"reason", reason,
		"max_warnings", strconv.Itoa(maxWarnings))
}

// BannedNotice announces a ban to the group.
func BannedNotice(username string) string {
	return render(bannedTemplate, "username", username)
}

// BannedRemovedNotice tells the group a banned member's message was removed.
func BannedRemovedNotice(username string) string {
	return render(bannedRemovedTemplate, "username", username)
}

// AdminAlert is sent privately to each admin after a violation.
func AdminAlert(chat, username, violation string, count int) string {
	return render(adminAlertTemplate,
		"chat", chat,
		"username", username,
		"violation", violation,
		"count", strconv.Itoa(count))
}

// ReportRecorded answers a counted report.
func ReportRecorded(count, threshold int) string {
	return render(reportRecordedTemplate,
		"count", strconv.Itoa(count),
		"threshold", strconv.Itoa(threshold))
}

// VideoRemovedNotice tells the group a video was removed by reports.
func VideoRemovedNotice(count int) string {
	return render(videoRemovedTemplate, "count", strconv.Itoa(count))
}

// VideoRemovedAdminAlert is sent privately to admins after a crowd removal.
func VideoRemovedAdminAlert(chat string, count int) string {
	return render(videoAdminTemplate, "chat", chat, "count", strconv.Itoa(count))
}
