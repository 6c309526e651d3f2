package bot

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"clipbot/internal/scheduler"
	"clipbot/internal/videosource"
	"clipbot/pkg/tgui"
)

const scheduledAtLayout = "02.01.2006 в 15:04"

func greetingText(supported []string) string {
	var b strings.Builder
	b.WriteString("👋 Привет! Я бот для загрузки Shorts/Reels в VK как клипов.\n\n")
	b.WriteString("Отправь мне ссылку на:\n")
	for _, name := range supported {
		fmt.Fprintf(&b, "• %s\n", name)
	}
	b.WriteString("\nЯ переведу название и загружу видео в твою VK группу!\n\n")
	b.WriteString("📊 Команды:\n")
	b.WriteString("/stats - статистика очереди постов\n")
	b.WriteString("/cancel - отменить текущую операцию")
	return b.String()
}

func statsText(st *scheduler.Stats) string {
	return fmt.Sprintf(
		"📊 %s\n\n📅 Сегодня: %d/%d\n📅 Завтра: %d/%d\n📦 Всего в очереди: %d\n\n⚙️ Лимит: %d постов в день",
		tgui.B("Статистика очереди постов"),
		st.Today, st.DailyLimit,
		st.Tomorrow, st.DailyLimit,
		st.TotalPending,
		st.DailyLimit,
	)
}

func confirmText(info *videosource.VideoInfo, original, translated string) string {
	return fmt.Sprintf(
		"🎬 %s %s\n\n📝 Оригинальное название:\n%s\n\n🇷🇺 Переведённое название:\n%s\n\nНазвание правильное?",
		tgui.B("Платформа:"), tgui.Esc(info.Platform),
		tgui.B(original),
		tgui.B(translated),
	)
}

func successText(title, platform string, at time.Time, st *scheduler.Stats) string {
	head := fmt.Sprintf(
		"✅ Видео добавлено в отложенные!\n\n"+
			"📝 Название: %s\n"+
			"🎬 Платформа: %s\n"+
			"📅 Запланировано на: %s\n"+
			"📌 Запись с клипом на стене",
		tgui.B(title),
		tgui.Esc(platform),
		tgui.B(at.Format(scheduledAtLayout)),
	)
	if st == nil {
		return head
	}
	return head + fmt.Sprintf(
		"\n\n📊 Статистика очереди:\n"+
			"• Сегодня: %d/%d\n"+
			"• Завтра: %d/%d\n"+
			"• Всего в очереди: %d",
		st.Today, st.DailyLimit,
		st.Tomorrow, st.DailyLimit,
		st.TotalPending,
	)
}

const (
	msgNotALink = "❌ Пожалуйста, отправь ссылку на видео.\n\n" +
		"Поддерживаются: YouTube Shorts, TikTok, Instagram Reels"
	msgUnsupported = "❌ Неподдерживаемая платформа.\n\n" +
		"Поддерживаются: YouTube Shorts, TikTok, Instagram Reels"
	msgFetching    = "⏳ Получаю информацию о видео..."
	msgResolveFail = "❌ Не удалось получить информацию о видео.\n" +
		"Проверь ссылку и попробуй снова."
	msgScheduling  = "📅 Планирую публикацию..."
	msgSlotsBusy   = "❌ Все слоты на сегодня заняты.\nПопробуй позже или очисти отложенные посты в SMMBox."
	msgPublishFail = "❌ Не удалось запланировать публикацию. Попробуй позже."
	msgCancelled   = "❌ Операция отменена. Отправь новую ссылку для загрузки."
	msgAskTitle    = "✍️ Введи новое название для видео:"
	msgEmptyTitle  = "❌ Название не может быть пустым. Попробуй ещё раз:"
)

func translatingText(original string) string {
	return fmt.Sprintf("📝 Оригинальное название: %s\n\n⏳ Перевожу...", original)
}

func confirmKeyboard() *tele.ReplyMarkup {
	return tgui.ConfirmInline(
		tgui.Btn("✅ Да, всё верно", cbPrefix+":"+cbConfirm),
		tgui.Btn("❌ Изменить", cbPrefix+":"+cbEdit),
	).Markup()
}

func cancelKeyboard() *tele.ReplyMarkup {
	return tgui.NewInline().Row(tgui.Btn("❌ Отменить", cbPrefix+":"+cbCancel)).Markup()
}
