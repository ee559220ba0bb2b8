// ABOUTME: Outbound prompt and reply texts shared by the gate and the role engines
// ABOUTME: Texts are Persian; per-step formatting lives next to the step that sends it

package conversation

import (
	"fmt"
	"strings"

	"github.com/2389/coven-gradebook/internal/report"
	"github.com/2389/coven-gradebook/internal/store"
)

// BotName is how the bot introduces itself.
const BotName = "دفتر نمره"

// Navigation tokens.
const (
	tokenBack     = "#"
	tokenExit     = "*"
	tokenPassword = "+"
	cmdStart      = "/start"
	cmdExit       = "/خروج"
	wordExit      = "خروج"
)

const passwordHint = "🔑 برای تغییر رمز عبور، فقط `+` بفرستید."

var (
	msgResetPrompt = "🔄 *" + BotName + "* آماده می باشد.\nنقش خود را انتخاب کنید:\n1️⃣ مدیر\n2️⃣ معلم\n3️⃣ دانش‌آموز"

	msgGenericError = "⚠️ خطا در پردازش پیام. لطفاً دوباره تلاش کنید."

	// Gate
	msgChooseRole     = "لطفاً عدد ۱ تا ۳ را وارد کنید."
	msgAskUsername    = "نام کاربری خود را وارد کنید:"
	msgAskPassword    = "رمز عبور خود را وارد کنید:"
	msgLoginError     = "⚠️ خطا در ورود. لطفاً بعداً تلاش کنید."
	msgBadCredentials = "❌ نام کاربری یا رمز عبور اشتباه است. دوباره تلاش کنید. \n می توانید با /start به منوی قبل باز گردید."

	// Password change
	msgAskNewPassword  = "🔑 لطفاً رمز عبور جدید خود را وارد کنید:"
	msgPasswordChanged = "✅ رمز عبور با موفقیت تغییر یافت."
	msgPasswordFailed  = "⚠️ خطا در تغییر رمز عبور. لطفاً دوباره تلاش کنید."

	// Menus
	msgManagerMenu = "📋 منوی مدیر:\n" +
		"1️⃣ ایجاد دوره کارنامه\n" +
		"2️⃣ مشاهده وضعیت دانش‌آموزان\n" +
		"3️⃣ تأیید دوره کارنامه\n" +
		"4️⃣ بررسی وضعیت ثبت نمرات\n\n" +
		"🔸 برای بازگشت ⬅️ #\n" +
		"🔸 برای خروج از ربات ❌ *\n" +
		passwordHint
	msgTeacherMenu = "📋 منوی معلم:\n" +
		"1️⃣ مشاهده دوره‌ها و دروس\n" +
		passwordHint
	msgStudentMenu = "📋 منوی دانش‌آموز:\n" +
		"1️⃣ مشاهده کارنامه‌ها\n\n" +
		"🔸 برای بازگشت به منوی قبلی: #\n" +
		"🔸 برای خروج کامل از ربات: *\n" +
		passwordHint
)

var roleTitles = map[store.Role]string{
	store.RoleManager: "👨‍💼 مدیر",
	store.RoleTeacher: "👩‍🏫 معلم",
	store.RoleStudent: "🎓 دانش‌آموز",
}

func loginSuccess(acc store.Account) string {
	return fmt.Sprintf("✅ ورود موفق!\n\n🔹 نقش شما: %s\n🔹 نام: %s\n\n🌟 خوش آمدید! آماده استفاده از امکانات *%s* باشید.",
		roleTitles[acc.Role], acc.Name, BotName)
}

// menuText is the main menu of a role.
func menuText(role store.Role) string {
	switch role {
	case store.RoleManager:
		return msgManagerMenu
	case store.RoleTeacher:
		return msgTeacherMenu
	case store.RoleStudent:
		return msgStudentMenu
	}
	return msgResetPrompt
}

// numbered renders a title followed by "i. item" lines and an optional footer.
func numbered(title string, items []string, footer string) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	if footer != "" {
		b.WriteString("\n" + footer)
	}
	return b.String()
}

// previousScore renders the stored score shown while grading, or "" when
// there is none.
func previousScore(sc *store.Score) string {
	if sc == nil {
		return ""
	}
	desc := sc.Description
	if desc == "" {
		desc = "—"
	}
	return fmt.Sprintf("نمره قبلی: %s, توضیح: %s\n", report.Score(sc.Value), desc)
}
