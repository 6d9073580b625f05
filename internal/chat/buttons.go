package chat

// ButtonID identifies a keyboard button independently of its caption.
type ButtonID string

const (
	ButtonTagEditor      ButtonID = "module:tag_editor"
	ButtonMusicCutter    ButtonID = "module:music_cutter"
	ButtonVoiceConverter ButtonID = "module:voice_converter"
	ButtonBitrateChanger ButtonID = "module:bitrate_changer"

	ButtonArtist      ButtonID = "tag:artist"
	ButtonTitle       ButtonID = "tag:title"
	ButtonAlbum       ButtonID = "tag:album"
	ButtonGenre       ButtonID = "tag:genre"
	ButtonYear        ButtonID = "tag:year"
	ButtonDiskNumber  ButtonID = "tag:disknumber"
	ButtonTrackNumber ButtonID = "tag:tracknumber"
	ButtonAlbumArt    ButtonID = "tag:album_art"

	ButtonBack    ButtonID = "nav:back"
	ButtonNewFile ButtonID = "nav:new"

	ButtonLanguageEnglish ButtonID = "lang:en"
	ButtonLanguagePersian ButtonID = "lang:fa"
)

var knownButtons = map[ButtonID]struct{}{
	ButtonTagEditor: {}, ButtonMusicCutter: {}, ButtonVoiceConverter: {}, ButtonBitrateChanger: {},
	ButtonArtist: {}, ButtonTitle: {}, ButtonAlbum: {}, ButtonGenre: {}, ButtonYear: {},
	ButtonDiskNumber: {}, ButtonTrackNumber: {}, ButtonAlbumArt: {},
	ButtonBack: {}, ButtonNewFile: {},
	ButtonLanguageEnglish: {}, ButtonLanguagePersian: {},
}

// ParseButtonID validates raw callback data coming from a transport.
func ParseButtonID(raw string) (ButtonID, bool) {
	id := ButtonID(raw)
	_, ok := knownButtons[id]
	return id, ok
}
