package i18n

// Key names a user-facing string. Catalogs map keys to captions per language.
type Key string

const (
	StartMessage     Key = "START_MESSAGE"
	StartOverMessage Key = "START_OVER_MESSAGE"
	HelpMessage      Key = "HELP_MESSAGE"
	AboutMessage     Key = "ABOUT_MESSAGE"
	DefaultMessage   Key = "DEFAULT_MESSAGE"
	ChooseLanguage   Key = "CHOOSE_LANGUAGE"
	LanguageChanged  Key = "LANGUAGE_CHANGED"
	AskWhichModule   Key = "ASK_WHICH_MODULE"
	AskWhichTag      Key = "ASK_WHICH_TAG"

	AskForArtist      Key = "ASK_FOR_ARTIST"
	AskForTitle       Key = "ASK_FOR_TITLE"
	AskForAlbum       Key = "ASK_FOR_ALBUM"
	AskForGenre       Key = "ASK_FOR_GENRE"
	AskForYear        Key = "ASK_FOR_YEAR"
	AskForDiskNumber  Key = "ASK_FOR_DISK_NUMBER"
	AskForTrackNumber Key = "ASK_FOR_TRACK_NUMBER"
	AskForAlbumArt    Key = "ASK_FOR_ALBUM_ART"

	Done                Key = "DONE"
	AlbumArtChanged     Key = "ALBUM_ART_CHANGED"
	ClickPreview        Key = "CLICK_PREVIEW_MESSAGE"
	ClickDone           Key = "CLICK_DONE_MESSAGE"
	Or                  Key = "OR"
	MusicCutterHelp     Key = "MUSIC_CUTTER_HELP"
	CutFrom             Key = "CUT_FROM"
	CutTo               Key = "CUT_TO"
	AdminAdded          Key = "ADMIN_ADDED"
	AdminRemoved        Key = "ADMIN_REMOVED"
	NotAdmin            Key = "NOT_ADMIN"
	UserCount           Key = "USER_COUNT"
	InvalidUserID       Key = "INVALID_USER_ID"
	LabelArtist         Key = "LABEL_ARTIST"
	LabelTitle          Key = "LABEL_TITLE"
	LabelAlbum          Key = "LABEL_ALBUM"
	LabelGenre          Key = "LABEL_GENRE"
	LabelYear           Key = "LABEL_YEAR"
	LabelDiskNumber     Key = "LABEL_DISK_NUMBER"
	LabelTrackNumber    Key = "LABEL_TRACK_NUMBER"
	ErrTooLargeFile     Key = "ERR_TOO_LARGE_FILE"
	ErrCreatingFolder   Key = "ERR_CREATING_USER_FOLDER"
	ErrDownload         Key = "ERR_ON_DOWNLOAD_AUDIO_MESSAGE"
	ErrDownloadPhoto    Key = "ERR_ON_DOWNLOAD_PHOTO_MESSAGE"
	ErrReadingTags      Key = "ERR_ON_READING_TAGS"
	ErrUpdatingTags     Key = "ERR_ON_UPDATING_TAGS"
	ErrNotImplemented   Key = "ERR_NOT_IMPLEMENTED"
	ErrMalformedRange   Key = "ERR_MALFORMED_RANGE"
	ErrOutOfRange       Key = "ERR_OUT_OF_RANGE"
	ErrBeginningAfter   Key = "ERR_BEGINNING_POINT_IS_GREATER"
	ErrTranscode        Key = "ERR_ON_TRANSCODING"
	ErrTranscodeTimeout Key = "ERR_TRANSCODE_TIMEOUT"
	ErrUnexpected       Key = "ERR_UNEXPECTED"

	BtnTagEditor      Key = "BTN_TAG_EDITOR"
	BtnMusicCutter    Key = "BTN_MUSIC_CUTTER"
	BtnVoiceConverter Key = "BTN_MUSIC_TO_VOICE_CONVERTER"
	BtnBitrateChanger Key = "BTN_BITRATE_CHANGER"
	BtnArtist         Key = "BTN_ARTIST"
	BtnTitle          Key = "BTN_TITLE"
	BtnAlbum          Key = "BTN_ALBUM"
	BtnGenre          Key = "BTN_GENRE"
	BtnYear           Key = "BTN_YEAR"
	BtnAlbumArt       Key = "BTN_ALBUM_ART"
	BtnDiskNumber     Key = "BTN_DISK_NUMBER"
	BtnTrackNumber    Key = "BTN_TRACK_NUMBER"
	BtnBack           Key = "BTN_BACK"
	BtnNewFile        Key = "BTN_NEW_FILE"
	BtnEnglish        Key = "BTN_ENGLISH"
	BtnPersian        Key = "BTN_PERSIAN"
)

type Translator interface {
	// Translate returns the caption for key in lang, falling back to the
	// default language and finally to the key itself.
	Translate(key Key, lang string) string
	// Match resolves a free-form locale (e.g. "fa-IR") to a supported code.
	Match(locale string) string
}
