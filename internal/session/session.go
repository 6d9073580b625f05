package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/tunesmith/internal/media"
)

type Module string

const (
	ModuleNone           Module = ""
	ModuleTagEditor      Module = "tag_editor"
	ModuleMusicCutter    Module = "music_cutter"
	ModuleVoiceConverter Module = "voice_converter"
	ModuleBitrateChanger Module = "bitrate_changer"
)

type TagField string

const (
	FieldNone        TagField = ""
	FieldArtist      TagField = "artist"
	FieldTitle       TagField = "title"
	FieldAlbum       TagField = "album"
	FieldGenre       TagField = "genre"
	FieldYear        TagField = "year"
	FieldDiskNumber  TagField = "disknumber"
	FieldTrackNumber TagField = "tracknumber"
	FieldAlbumArt    TagField = "album_art"
)

var (
	ErrNoAudio          = errors.New("no audio ingested")
	ErrWrongModule      = errors.New("operation not valid in the active module")
	ErrNoFieldPending   = errors.New("no tag field awaiting a value")
	ErrArtworkExpected  = errors.New("album art field expects a photo")
	ErrUnknownField     = errors.New("unknown tag field")
	ErrInvalidTagNumber = errors.New("tag value is not an integer")
)

// TagEditor holds tag values as the user typed them. Numeric fields are
// coerced only when the tags are written.
type TagEditor struct {
	Artist       string   `json:"artist"`
	Title        string   `json:"title"`
	Album        string   `json:"album"`
	Genre        string   `json:"genre"`
	Year         string   `json:"year"`
	DiskNumber   string   `json:"disknumber"`
	TrackNumber  string   `json:"tracknumber"`
	CurrentField TagField `json:"current_field"`
}

type Session struct {
	UserID               int64     `json:"user_id"`
	Language             string    `json:"language"`
	ActiveModule         Module    `json:"active_module"`
	SourceAudioPath      string    `json:"source_audio_path"`
	ArtworkPath          string    `json:"artwork_path"`
	PendingArtworkPath   string    `json:"pending_artwork_path"`
	AudioDurationSeconds int       `json:"audio_duration_seconds"`
	SourceMessageRef     string    `json:"source_message_ref"`
	TagEditor            TagEditor `json:"tag_editor"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func New(userID int64) *Session {
	return &Session{UserID: userID}
}

func (s *Session) HasIngestedAudio() bool {
	return s.SourceAudioPath != ""
}

// WorkingFiles lists every file the session currently owns.
func (s *Session) WorkingFiles() []string {
	files := make([]string, 0, 3)
	for _, p := range []string{s.SourceAudioPath, s.ArtworkPath, s.PendingArtworkPath} {
		if p != "" {
			files = append(files, p)
		}
	}
	return files
}

// Reset returns the session to Idle, keeping identity and language. The
// returned paths are no longer owned by the session and must be released.
func (s *Session) Reset() []string {
	released := s.WorkingFiles()
	*s = Session{UserID: s.UserID, Language: s.Language, UpdatedAt: s.UpdatedAt}
	return released
}

type Ingest struct {
	AudioPath       string
	ArtworkPath     string
	DurationSeconds int
	MessageRef      string
	Tags            media.TagSet
}

// Ingest replaces the session's audio with a freshly downloaded file and
// returns the previous working files for release.
func (s *Session) Ingest(in Ingest) []string {
	released := s.Reset()
	s.SourceAudioPath = in.AudioPath
	s.ArtworkPath = in.ArtworkPath
	s.AudioDurationSeconds = in.DurationSeconds
	s.SourceMessageRef = in.MessageRef
	s.TagEditor = TagEditorFromSet(in.Tags)
	return released
}

func (s *Session) SelectModule(m Module) error {
	if !s.HasIngestedAudio() {
		return ErrNoAudio
	}
	s.ActiveModule = m
	s.TagEditor.CurrentField = FieldNone
	return nil
}

// ClearModule goes back to the module selector without dropping the audio.
func (s *Session) ClearModule() {
	s.ActiveModule = ModuleNone
	s.TagEditor.CurrentField = FieldNone
}

func (s *Session) SelectField(f TagField) error {
	if !s.HasIngestedAudio() {
		return ErrNoAudio
	}
	if s.ActiveModule != ModuleTagEditor {
		return ErrWrongModule
	}
	if !f.valid() {
		return ErrUnknownField
	}
	s.TagEditor.CurrentField = f
	return nil
}

// SetFieldValue stores text into the pending field and clears it.
func (s *Session) SetFieldValue(text string) (TagField, error) {
	if s.ActiveModule != ModuleTagEditor {
		return FieldNone, ErrWrongModule
	}
	field := s.TagEditor.CurrentField
	switch field {
	case FieldNone:
		return FieldNone, ErrNoFieldPending
	case FieldAlbumArt:
		return field, ErrArtworkExpected
	}
	s.TagEditor.set(field, strings.TrimSpace(text))
	s.TagEditor.CurrentField = FieldNone
	return field, nil
}

// SetPendingArtwork records an uploaded cover and returns the previous
// pending file, if any, for release.
func (s *Session) SetPendingArtwork(path string) (string, error) {
	if s.ActiveModule != ModuleTagEditor || s.TagEditor.CurrentField != FieldAlbumArt {
		return "", ErrWrongModule
	}
	previous := s.PendingArtworkPath
	s.PendingArtworkPath = path
	s.TagEditor.CurrentField = FieldNone
	return previous, nil
}

func (s *Session) AwaitingArtwork() bool {
	return s.ActiveModule == ModuleTagEditor && s.TagEditor.CurrentField == FieldAlbumArt
}

// PreviewArtwork prefers the pending upload over the original cover.
func (s *Session) PreviewArtwork() string {
	if s.PendingArtworkPath != "" {
		return s.PendingArtworkPath
	}
	return s.ArtworkPath
}

func (f TagField) valid() bool {
	switch f {
	case FieldArtist, FieldTitle, FieldAlbum, FieldGenre, FieldYear, FieldDiskNumber, FieldTrackNumber, FieldAlbumArt:
		return true
	default:
		return false
	}
}

func (t *TagEditor) set(f TagField, v string) {
	switch f {
	case FieldArtist:
		t.Artist = v
	case FieldTitle:
		t.Title = v
	case FieldAlbum:
		t.Album = v
	case FieldGenre:
		t.Genre = v
	case FieldYear:
		t.Year = v
	case FieldDiskNumber:
		t.DiskNumber = v
	case FieldTrackNumber:
		t.TrackNumber = v
	}
}

// TagSet converts the edited values for writing. Empty numeric fields become
// zero; anything else that is not an integer fails.
func (t TagEditor) TagSet() (media.TagSet, error) {
	year, err := tagNumber("year", t.Year)
	if err != nil {
		return media.TagSet{}, err
	}
	disk, err := tagNumber("disknumber", t.DiskNumber)
	if err != nil {
		return media.TagSet{}, err
	}
	track, err := tagNumber("tracknumber", t.TrackNumber)
	if err != nil {
		return media.TagSet{}, err
	}
	return media.TagSet{
		Artist:      t.Artist,
		Title:       t.Title,
		Album:       t.Album,
		Genre:       t.Genre,
		Year:        year,
		DiskNumber:  disk,
		TrackNumber: track,
	}, nil
}

func TagEditorFromSet(tags media.TagSet) TagEditor {
	return TagEditor{
		Artist:      tags.Artist,
		Title:       tags.Title,
		Album:       tags.Album,
		Genre:       tags.Genre,
		Year:        numberText(tags.Year),
		DiskNumber:  numberText(tags.DiskNumber),
		TrackNumber: numberText(tags.TrackNumber),
	}
}

func tagNumber(name, v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidTagNumber, name, v)
	}
	return n, nil
}

func numberText(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
