package chat

import "context"

type EventKind int

const (
	EventCommand EventKind = iota
	EventButton
	EventText
	EventPhoto
	EventAudio
	EventOtherMedia
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventButton:
		return "button"
	case EventText:
		return "text"
	case EventPhoto:
		return "photo"
	case EventAudio:
		return "audio"
	default:
		return "other_media"
	}
}

type MediaRef struct {
	FileID          string
	FileName        string
	MimeType        string
	SizeBytes       int64
	DurationSeconds int
}

type Event struct {
	Kind         EventKind
	UserID       int64
	ChatID       string
	MessageID    string
	LanguageHint string

	Command     string
	CommandArgs string
	Button      ButtonID
	Text        string
	Media       *MediaRef
}

type ResponseKind int

const (
	ResponseText ResponseKind = iota
	ResponsePhoto
	ResponseAudio
	ResponseVoice
)

type Button struct {
	ID    ButtonID
	Label string
}

type Keyboard struct {
	Rows [][]Button
}

// Response is an outbound message. For photo, audio and voice responses
// FilePath must exist until Send returns; Text is the caption.
type Response struct {
	Kind            ResponseKind
	Text            string
	FilePath        string
	DurationSeconds int
	Keyboard        *Keyboard
	ReplyTo         string
}

type Activity int

const (
	ActivityTyping Activity = iota
	ActivityUploadAudio
	ActivityRecordVoice
)

type Messenger interface {
	Send(ctx context.Context, chatID string, resp Response) error
	Download(ctx context.Context, media MediaRef, destPath string) error
	Notify(ctx context.Context, chatID string, activity Activity) error
}

type EventHandler func(ctx context.Context, event Event)

type Client interface {
	Messenger
	Connect(ctx context.Context) error
	Close() error
	RegisterEventHandler(handler EventHandler)
	Run(ctx context.Context) error
}
