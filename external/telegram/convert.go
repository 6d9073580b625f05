package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/foxseedlab/tunesmith/internal/chat"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// toEvent maps an update to a transport-neutral event. Updates without a
// sender or with unknown callback data are dropped.
func toEvent(u tgbotapi.Update) (chat.Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return chat.Event{}, false
		}
		id, ok := chat.ParseButtonID(cq.Data)
		if !ok {
			return chat.Event{}, false
		}
		return chat.Event{
			Kind:         chat.EventButton,
			UserID:       cq.From.ID,
			ChatID:       formatID(cq.Message.Chat.ID),
			MessageID:    strconv.Itoa(cq.Message.MessageID),
			LanguageHint: cq.From.LanguageCode,
			Button:       id,
		}, true
	}

	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return chat.Event{}, false
	}
	ev := chat.Event{
		UserID:       msg.From.ID,
		ChatID:       formatID(msg.Chat.ID),
		MessageID:    strconv.Itoa(msg.MessageID),
		LanguageHint: msg.From.LanguageCode,
	}

	switch {
	case msg.IsCommand():
		ev.Kind = chat.EventCommand
		ev.Command = msg.Command()
		ev.CommandArgs = msg.CommandArguments()
	case msg.Audio != nil:
		ev.Kind = chat.EventAudio
		ev.Media = &chat.MediaRef{
			FileID:          msg.Audio.FileID,
			FileName:        msg.Audio.FileName,
			MimeType:        msg.Audio.MimeType,
			SizeBytes:       int64(msg.Audio.FileSize),
			DurationSeconds: msg.Audio.Duration,
		}
	case len(msg.Photo) > 0:
		// Telegram lists sizes smallest first.
		largest := msg.Photo[len(msg.Photo)-1]
		ev.Kind = chat.EventPhoto
		ev.Media = &chat.MediaRef{FileID: largest.FileID, MimeType: "image/jpeg", SizeBytes: int64(largest.FileSize)}
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "audio/"):
		ev.Kind = chat.EventAudio
		ev.Media = documentRef(msg.Document)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		ev.Kind = chat.EventPhoto
		ev.Media = documentRef(msg.Document)
	case hasMedia(msg):
		ev.Kind = chat.EventOtherMedia
	case msg.Text != "":
		ev.Kind = chat.EventText
		ev.Text = msg.Text
	default:
		ev.Kind = chat.EventOtherMedia
	}
	return ev, true
}

func documentRef(d *tgbotapi.Document) *chat.MediaRef {
	return &chat.MediaRef{
		FileID:    d.FileID,
		FileName:  d.FileName,
		MimeType:  d.MimeType,
		SizeBytes: int64(d.FileSize),
	}
}

func hasMedia(msg *tgbotapi.Message) bool {
	return msg.Photo != nil ||
		msg.Video != nil ||
		msg.Audio != nil ||
		msg.Document != nil ||
		msg.Voice != nil ||
		msg.VideoNote != nil ||
		msg.Animation != nil ||
		msg.Sticker != nil ||
		msg.Contact != nil ||
		msg.Location != nil
}

func toChattable(chatID int64, resp chat.Response) (tgbotapi.Chattable, error) {
	var replyTo int
	if resp.ReplyTo != "" {
		id, err := strconv.Atoi(resp.ReplyTo)
		if err != nil {
			return nil, fmt.Errorf("invalid reply message id %q: %w", resp.ReplyTo, err)
		}
		replyTo = id
	}

	switch resp.Kind {
	case chat.ResponseText:
		m := tgbotapi.NewMessage(chatID, resp.Text)
		m.ParseMode = tgbotapi.ModeMarkdown
		m.ReplyToMessageID = replyTo
		if kb := toMarkup(resp.Keyboard); kb != nil {
			m.ReplyMarkup = *kb
		}
		return m, nil
	case chat.ResponsePhoto:
		p := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(resp.FilePath))
		p.Caption = resp.Text
		p.ParseMode = tgbotapi.ModeMarkdown
		p.ReplyToMessageID = replyTo
		if kb := toMarkup(resp.Keyboard); kb != nil {
			p.ReplyMarkup = *kb
		}
		return p, nil
	case chat.ResponseAudio:
		a := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(resp.FilePath))
		a.Caption = resp.Text
		a.ParseMode = tgbotapi.ModeMarkdown
		a.Duration = resp.DurationSeconds
		a.ReplyToMessageID = replyTo
		if kb := toMarkup(resp.Keyboard); kb != nil {
			a.ReplyMarkup = *kb
		}
		return a, nil
	case chat.ResponseVoice:
		v := tgbotapi.NewVoice(chatID, tgbotapi.FilePath(resp.FilePath))
		v.Caption = resp.Text
		v.ParseMode = tgbotapi.ModeMarkdown
		v.Duration = resp.DurationSeconds
		v.ReplyToMessageID = replyTo
		if kb := toMarkup(resp.Keyboard); kb != nil {
			v.ReplyMarkup = *kb
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported response kind %d", resp.Kind)
	}
}

// plain strips Markdown parsing from a config built by toChattable.
func plain(c tgbotapi.Chattable) tgbotapi.Chattable {
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		v.ParseMode = ""
		return v
	case tgbotapi.PhotoConfig:
		v.ParseMode = ""
		return v
	case tgbotapi.AudioConfig:
		v.ParseMode = ""
		return v
	case tgbotapi.VoiceConfig:
		v.ParseMode = ""
		return v
	default:
		return c
	}
}

func toMarkup(kb *chat.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, r := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, string(b.ID)))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func chatAction(a chat.Activity) string {
	switch a {
	case chat.ActivityUploadAudio:
		return tgbotapi.ChatUploadVoice
	case chat.ActivityRecordVoice:
		return tgbotapi.ChatRecordVoice
	default:
		return tgbotapi.ChatTyping
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", s, err)
	}
	return id, nil
}
