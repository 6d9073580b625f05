package workflow

import (
	"github.com/foxseedlab/tunesmith/internal/chat"
	"github.com/foxseedlab/tunesmith/internal/i18n"
)

func button(tr func(i18n.Key) string, id chat.ButtonID, label i18n.Key) chat.Button {
	return chat.Button{ID: id, Label: tr(label)}
}

func moduleKeyboard(tr func(i18n.Key) string) *chat.Keyboard {
	return &chat.Keyboard{Rows: [][]chat.Button{
		{button(tr, chat.ButtonTagEditor, i18n.BtnTagEditor), button(tr, chat.ButtonVoiceConverter, i18n.BtnVoiceConverter)},
		{button(tr, chat.ButtonMusicCutter, i18n.BtnMusicCutter), button(tr, chat.ButtonBitrateChanger, i18n.BtnBitrateChanger)},
	}}
}

func tagKeyboard(tr func(i18n.Key) string) *chat.Keyboard {
	return &chat.Keyboard{Rows: [][]chat.Button{
		{button(tr, chat.ButtonArtist, i18n.BtnArtist), button(tr, chat.ButtonTitle, i18n.BtnTitle), button(tr, chat.ButtonAlbum, i18n.BtnAlbum)},
		{button(tr, chat.ButtonGenre, i18n.BtnGenre), button(tr, chat.ButtonYear, i18n.BtnYear), button(tr, chat.ButtonAlbumArt, i18n.BtnAlbumArt)},
		{button(tr, chat.ButtonDiskNumber, i18n.BtnDiskNumber), button(tr, chat.ButtonTrackNumber, i18n.BtnTrackNumber)},
		{button(tr, chat.ButtonBack, i18n.BtnBack)},
	}}
}

func backKeyboard(tr func(i18n.Key) string) *chat.Keyboard {
	return &chat.Keyboard{Rows: [][]chat.Button{{button(tr, chat.ButtonBack, i18n.BtnBack)}}}
}

func newFileKeyboard(tr func(i18n.Key) string) *chat.Keyboard {
	return &chat.Keyboard{Rows: [][]chat.Button{{button(tr, chat.ButtonNewFile, i18n.BtnNewFile)}}}
}

func languageKeyboard(tr func(i18n.Key) string) *chat.Keyboard {
	return &chat.Keyboard{Rows: [][]chat.Button{
		{button(tr, chat.ButtonLanguageEnglish, i18n.BtnEnglish), button(tr, chat.ButtonLanguagePersian, i18n.BtnPersian)},
	}}
}
