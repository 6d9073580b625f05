package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/foxseedlab/tunesmith/internal/chat"
	"github.com/foxseedlab/tunesmith/internal/config"
	"github.com/foxseedlab/tunesmith/internal/files"
	"github.com/foxseedlab/tunesmith/internal/i18n"
	"github.com/foxseedlab/tunesmith/internal/media"
	"github.com/foxseedlab/tunesmith/internal/repository"
	"github.com/foxseedlab/tunesmith/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID int64 = 1001

type sentMessage struct {
	chatID      string
	resp        chat.Response
	fileExisted bool
}

type mockMessenger struct {
	mu          sync.Mutex
	sent        []sentMessage
	downloads   []string
	activities  []chat.Activity
	downloadErr error
}

func (m *mockMessenger) Send(_ context.Context, chatID string, resp chat.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existed := false
	if resp.FilePath != "" {
		_, err := os.Stat(resp.FilePath)
		existed = err == nil
	}
	m.sent = append(m.sent, sentMessage{chatID: chatID, resp: resp, fileExisted: existed})
	return nil
}

func (m *mockMessenger) Download(_ context.Context, ref chat.MediaRef, destPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads = append(m.downloads, destPath)
	if m.downloadErr != nil {
		return m.downloadErr
	}
	return os.WriteFile(destPath, []byte("payload:"+ref.FileID), 0o644)
}

func (m *mockMessenger) Notify(_ context.Context, _ string, activity chat.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, activity)
	return nil
}

func (m *mockMessenger) last() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.resp.Text)
	}
	return out
}

func (m *mockMessenger) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

type tagWrite struct {
	path    string
	tags    media.TagSet
	artwork []byte
}

type mockCodec struct {
	tags     media.TagSet
	readErr  error
	writeErr error
	panicked bool
	writes   []tagWrite
}

func (m *mockCodec) Read(path string) (media.TagSet, error) {
	if m.panicked {
		panic("corrupt frame")
	}
	if m.readErr != nil {
		return media.TagSet{}, &media.TagError{Kind: media.TagUnreadable, Path: path, Err: m.readErr}
	}
	return m.tags, nil
}

func (m *mockCodec) Write(path string, tags media.TagSet, artwork []byte) error {
	m.writes = append(m.writes, tagWrite{path: path, tags: tags, artwork: artwork})
	if m.writeErr != nil {
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: m.writeErr}
	}
	return nil
}

type cutCall struct {
	src        string
	start, end int
}

type mockTranscoder struct {
	cuts     []cutCall
	voices   []string
	voiceErr error
}

func (m *mockTranscoder) CutRange(_ context.Context, src string, start, end int) (string, error) {
	m.cuts = append(m.cuts, cutCall{src: src, start: start, end: end})
	out := files.DerivedPath(src, files.KindCut)
	return out, os.WriteFile(out, []byte("cut"), 0o644)
}

func (m *mockTranscoder) ToVoiceNote(_ context.Context, src string) (string, error) {
	m.voices = append(m.voices, src)
	if m.voiceErr != nil {
		return "", m.voiceErr
	}
	out := files.DerivedPath(src, files.KindVoice)
	return out, os.WriteFile(out, []byte("voice"), 0o644)
}

func (m *mockTranscoder) Reencode(context.Context, string, int) (string, error) {
	return "", &media.TranscodeError{Kind: media.NotImplemented, Op: "reencode"}
}

type mockProber struct {
	duration int
	calls    int
}

func (m *mockProber) DurationSeconds(context.Context, string) (int, error) {
	m.calls++
	return m.duration, nil
}

type mockRepository struct {
	mu     sync.Mutex
	users  map[int64]*repository.User
	admins map[int64]bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: map[int64]*repository.User{}, admins: map[int64]bool{}}
}

func (m *mockRepository) FindUser(_ context.Context, id int64) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *mockRepository) CreateUser(_ context.Context, id int64) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &repository.User{UserID: id}
	m.users[id] = u
	return u, nil
}

func (m *mockRepository) CountUsers(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *mockRepository) IncrementUsageCounter(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		u = &repository.User{UserID: id}
		m.users[id] = u
	}
	u.NumberOfFilesSent++
	return nil
}

func (m *mockRepository) ListTopUsers(context.Context, int) ([]repository.User, error) {
	return nil, nil
}

func (m *mockRepository) IsAdmin(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.admins[id], nil
}

func (m *mockRepository) AddAdmin(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[id] = true
	return nil
}

func (m *mockRepository) RemoveAdmin(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.admins, id)
	return nil
}

func (m *mockRepository) CountAdmins(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.admins), nil
}

func (m *mockRepository) Close() {}

// keyTranslator echoes keys so assertions do not depend on catalog wording.
type keyTranslator struct{}

func (keyTranslator) Translate(key i18n.Key, _ string) string { return string(key) }

func (keyTranslator) Match(locale string) string {
	if strings.HasPrefix(locale, "fa") {
		return "fa"
	}
	return "en"
}

type harness struct {
	d          *Dispatcher
	workDir    string
	sessions   *session.Manager
	store      *session.MemoryStore
	messenger  *mockMessenger
	codec      *mockCodec
	transcoder *mockTranscoder
	prober     *mockProber
	repo       *mockRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := session.NewMemoryStore()
	h := &harness{
		workDir:    t.TempDir(),
		sessions:   session.NewManager(store),
		store:      store,
		messenger:  &mockMessenger{},
		codec:      &mockCodec{},
		transcoder: &mockTranscoder{},
		prober:     &mockProber{},
		repo:       newMockRepository(),
	}
	cfg := &config.Config{
		BotUsername:         "@tunesmith_bot",
		DefaultLanguage:     "en",
		OwnerUserIDs:        []int64{1},
		MaxAudioDurationSec: 3600,
		VoiceBitrateKbps:    32,
		WorkDir:             h.workDir,
	}
	h.d = NewDispatcher(Deps{
		Config:     cfg,
		Sessions:   h.sessions,
		Users:      h.repo,
		Codec:      h.codec,
		Transcoder: h.transcoder,
		Prober:     h.prober,
		Files:      files.NewLifecycle(h.workDir),
		Translator: keyTranslator{},
		Messenger:  h.messenger,
	})
	return h
}

func (h *harness) send(ev chat.Event) {
	if ev.UserID == 0 {
		ev.UserID = testUserID
	}
	if ev.ChatID == "" {
		ev.ChatID = "chat-1"
	}
	h.d.Handle(context.Background(), ev)
}

func (h *harness) audio(id string, duration int) {
	h.send(chat.Event{
		Kind:      chat.EventAudio,
		MessageID: "msg-" + id,
		Media:     &chat.MediaRef{FileID: id, FileName: "song.mp3", MimeType: "audio/mpeg", DurationSeconds: duration},
	})
}

func (h *harness) button(id chat.ButtonID) {
	h.send(chat.Event{Kind: chat.EventButton, Button: id})
}

func (h *harness) text(s string) {
	h.send(chat.Event{Kind: chat.EventText, Text: s})
}

func (h *harness) command(name, args string) {
	h.send(chat.Event{Kind: chat.EventCommand, Command: name, CommandArgs: args})
}

func (h *harness) session(t *testing.T) *session.Session {
	t.Helper()
	s, err := h.store.Load(context.Background(), testUserID)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func (h *harness) userFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(h.workDir, "1001"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestTagEditingEndToEnd(t *testing.T) {
	h := newHarness(t)
	h.codec.tags = media.TagSet{Artist: "A"}

	h.audio("f1", 200)
	last := h.messenger.last()
	assert.Equal(t, string(i18n.AskWhichModule), last.resp.Text)
	require.NotNil(t, last.resp.Keyboard)
	assert.Equal(t, chat.ButtonTagEditor, last.resp.Keyboard.Rows[0][0].ID)
	assert.Equal(t, "msg-f1", last.resp.ReplyTo)

	s := h.session(t)
	require.True(t, s.HasIngestedAudio())
	assert.Equal(t, 200, s.AudioDurationSeconds)
	assert.Equal(t, "A", s.TagEditor.Artist)
	assert.FileExists(t, s.SourceAudioPath)
	assert.Equal(t, int64(1), h.repo.users[testUserID].NumberOfFilesSent)

	h.button(chat.ButtonTagEditor)
	assert.Contains(t, h.messenger.last().resp.Text, "LABEL_ARTIST:* A")

	h.button(chat.ButtonArtist)
	assert.Equal(t, string(i18n.AskForArtist), h.messenger.last().resp.Text)
	assert.Equal(t, session.FieldArtist, h.session(t).TagEditor.CurrentField)

	h.text("B")
	s = h.session(t)
	assert.Equal(t, "B", s.TagEditor.Artist)
	assert.Equal(t, session.FieldNone, s.TagEditor.CurrentField)
	assert.True(t, strings.HasPrefix(h.messenger.last().resp.Text, string(i18n.Done)))

	before := *h.session(t)
	h.command(CommandPreview, "")
	preview := h.messenger.last().resp
	assert.Equal(t, chat.ResponseText, preview.Kind)
	assert.Contains(t, preview.Text, "LABEL_ARTIST:* B")
	assert.Contains(t, preview.Text, "@tunesmith_bot")
	after := *h.session(t)
	after.UpdatedAt = before.UpdatedAt
	assert.Equal(t, before, after)

	source := after.SourceAudioPath
	h.command(CommandDone, "")
	require.Len(t, h.codec.writes, 1)
	assert.Equal(t, source, h.codec.writes[0].path)
	assert.Equal(t, "B", h.codec.writes[0].tags.Artist)
	assert.Nil(t, h.codec.writes[0].artwork)

	delivered := h.messenger.last()
	assert.Equal(t, chat.ResponseAudio, delivered.resp.Kind)
	assert.Equal(t, source, delivered.resp.FilePath)
	assert.True(t, delivered.fileExisted)
	assert.Equal(t, "msg-f1", delivered.resp.ReplyTo)

	s = h.session(t)
	assert.False(t, s.HasIngestedAudio())
	assert.Equal(t, session.ModuleNone, s.ActiveModule)
	assert.Equal(t, "en", s.Language)
	assert.Empty(t, h.userFiles(t))
}

func TestCutterRejectsStartAfterEnd(t *testing.T) {
	h := newHarness(t)
	h.audio("f1", 200)
	h.button(chat.ButtonMusicCutter)
	assert.Equal(t, session.ModuleMusicCutter, h.session(t).ActiveModule)

	h.text("0:10-0:05")
	assert.Equal(t, string(i18n.ErrBeginningAfter), h.messenger.last().resp.Text)
	assert.Empty(t, h.transcoder.cuts)
	assert.Equal(t, session.ModuleMusicCutter, h.session(t).ActiveModule)
	assert.True(t, h.session(t).HasIngestedAudio())
}

func TestCutterRejectsOutOfRangeAndMalformed(t *testing.T) {
	h := newHarness(t)
	h.audio("f1", 120)
	h.button(chat.ButtonMusicCutter)
	h.messenger.reset()

	h.text("10-200")
	texts := h.messenger.texts()
	require.Len(t, texts, 2)
	assert.True(t, strings.HasPrefix(texts[0], string(i18n.ErrOutOfRange)))
	assert.Contains(t, texts[0], "02:00")
	assert.True(t, strings.HasPrefix(texts[1], string(i18n.MusicCutterHelp)))

	h.text("ten to twenty")
	assert.True(t, strings.HasPrefix(h.messenger.last().resp.Text, string(i18n.ErrMalformedRange)))
	assert.Empty(t, h.transcoder.cuts)
	assert.Equal(t, session.ModuleMusicCutter, h.session(t).ActiveModule)
}

func TestCutterDeliversRangeAndResets(t *testing.T) {
	h := newHarness(t)
	h.codec.tags = media.TagSet{Title: "Song"}
	h.audio("f1", 200)
	source := h.session(t).SourceAudioPath
	h.button(chat.ButtonMusicCutter)

	h.text("0:10-0:50")
	require.Len(t, h.transcoder.cuts, 1)
	assert.Equal(t, cutCall{src: source, start: 10, end: 50}, h.transcoder.cuts[0])

	cutPath := files.DerivedPath(source, files.KindCut)
	require.Len(t, h.codec.writes, 1)
	assert.Equal(t, cutPath, h.codec.writes[0].path)
	assert.Equal(t, "Song", h.codec.writes[0].tags.Title)

	delivered := h.messenger.last()
	assert.Equal(t, chat.ResponseAudio, delivered.resp.Kind)
	assert.Equal(t, 40, delivered.resp.DurationSeconds)
	assert.True(t, delivered.fileExisted)
	assert.Contains(t, delivered.resp.Text, "00:10")
	assert.Contains(t, delivered.resp.Text, "00:50")
	assert.Equal(t, chat.ButtonNewFile, delivered.resp.Keyboard.Rows[0][0].ID)

	assert.False(t, h.session(t).HasIngestedAudio())
	assert.Empty(t, h.userFiles(t))
}

func TestIngestRejectsLongAudioWithoutFiles(t *testing.T) {
	h := newHarness(t)
	h.audio("long", 3600)

	assert.Equal(t, string(i18n.ErrTooLargeFile), h.messenger.last().resp.Text)
	assert.Empty(t, h.messenger.downloads)
	assert.NoDirExists(t, filepath.Join(h.workDir, "1001"))
	assert.False(t, h.session(t).HasIngestedAudio())
}

func TestIngestProbesUnknownDuration(t *testing.T) {
	h := newHarness(t)
	h.prober.duration = 4000
	h.audio("attachment", 0)

	assert.Equal(t, 1, h.prober.calls)
	assert.Equal(t, string(i18n.ErrTooLargeFile), h.messenger.last().resp.Text)
	assert.Empty(t, h.userFiles(t))

	h.prober.duration = 90
	h.audio("attachment", 0)
	assert.Equal(t, 90, h.session(t).AudioDurationSeconds)
}

func TestIngestFailures(t *testing.T) {
	h := newHarness(t)
	h.messenger.downloadErr = errors.New("connection reset")
	h.audio("f1", 100)
	assert.Equal(t, string(i18n.ErrDownload), h.messenger.last().resp.Text)
	assert.Empty(t, h.userFiles(t))

	h.messenger.downloadErr = nil
	h.codec.readErr = errors.New("no id3 header")
	h.audio("f2", 100)
	assert.Equal(t, string(i18n.ErrReadingTags), h.messenger.last().resp.Text)
	assert.Empty(t, h.userFiles(t))
	assert.False(t, h.session(t).HasIngestedAudio())
}

func TestIngestReplacesPreviousFiles(t *testing.T) {
	h := newHarness(t)
	h.codec.tags = media.TagSet{Artwork: []byte{0xff, 0xd8}}
	h.audio("f1", 100)
	first := h.session(t)
	assert.FileExists(t, first.ArtworkPath)

	h.codec.tags = media.TagSet{}
	h.audio("f2", 100)
	assert.NoFileExists(t, first.SourceAudioPath)
	assert.NoFileExists(t, first.ArtworkPath)
	assert.Len(t, h.userFiles(t), 1)
}

func TestVoiceConverterRunsImmediately(t *testing.T) {
	h := newHarness(t)
	h.audio("f1", 100)
	h.button(chat.ButtonVoiceConverter)

	require.Len(t, h.transcoder.voices, 1)
	delivered := h.messenger.last()
	assert.Equal(t, chat.ResponseVoice, delivered.resp.Kind)
	assert.True(t, delivered.fileExisted)
	assert.Contains(t, h.messenger.activities, chat.ActivityRecordVoice)
	assert.False(t, h.session(t).HasIngestedAudio())
	assert.Empty(t, h.userFiles(t))
}

func TestVoiceConverterFailureKeepsAudio(t *testing.T) {
	h := newHarness(t)
	h.transcoder.voiceErr = &media.TranscodeError{Kind: media.Timeout, Op: "voice"}
	h.audio("f1", 100)
	h.button(chat.ButtonVoiceConverter)

	assert.Equal(t, string(i18n.ErrTranscodeTimeout), h.messenger.last().resp.Text)
	s := h.session(t)
	assert.True(t, s.HasIngestedAudio())
	assert.Equal(t, session.ModuleNone, s.ActiveModule)
}

func TestBitrateChangerNotImplemented(t *testing.T) {
	h := newHarness(t)
	h.audio("f1", 100)
	h.button(chat.ButtonBitrateChanger)

	assert.Equal(t, string(i18n.ErrNotImplemented), h.messenger.last().resp.Text)
	s := h.session(t)
	assert.Equal(t, session.ModuleNone, s.ActiveModule)
	assert.True(t, s.HasIngestedAudio())
}

func TestAlbumArtFlow(t *testing.T) {
	h := newHarness(t)
	h.audio("f1", 100)
	h.button(chat.ButtonTagEditor)

	photo := chat.Event{Kind: chat.EventPhoto, Media: &chat.MediaRef{FileID: "p1"}}
	h.send(photo)
	assert.Equal(t, string(i18n.AskWhichTag), h.messenger.last().resp.Text)

	h.button(chat.ButtonAlbumArt)
	h.text("not a photo")
	assert.Equal(t, string(i18n.AskForAlbumArt), h.messenger.last().resp.Text)
	assert.True(t, h.session(t).AwaitingArtwork())

	h.send(photo)
	assert.True(t, strings.HasPrefix(h.messenger.last().resp.Text, string(i18n.AlbumArtChanged)))
	pending := h.session(t).PendingArtworkPath
	assert.FileExists(t, pending)

	h.command(CommandPreview, "")
	assert.Equal(t, chat.ResponsePhoto, h.messenger.last().resp.Kind)
	assert.Equal(t, pending, h.messenger.last().resp.FilePath)

	h.command(CommandDone, "")
	require.Len(t, h.codec.writes, 1)
	assert.Equal(t, []byte("payload:p1"), h.codec.writes[0].artwork)
	assert.NoFileExists(t, pending)
}

func TestDoneDeliversOriginalWhenWriteFails(t *testing.T) {
	h := newHarness(t)
	h.codec.writeErr = errors.New("read-only file system")
	h.audio("f1", 100)
	h.messenger.reset()

	h.command(CommandDone, "")
	texts := h.messenger.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, string(i18n.ErrUpdatingTags), texts[0])
	delivered := h.messenger.last()
	assert.Equal(t, chat.ResponseAudio, delivered.resp.Kind)
	assert.True(t, delivered.fileExisted)
	assert.False(t, h.session(t).HasIngestedAudio())
}

func TestEventsWithoutAudio(t *testing.T) {
	h := newHarness(t)

	h.text("hello")
	assert.Equal(t, string(i18n.DefaultMessage), h.messenger.last().resp.Text)

	h.button(chat.ButtonArtist)
	assert.Equal(t, string(i18n.DefaultMessage), h.messenger.last().resp.Text)

	h.command(CommandDone, "")
	assert.Equal(t, string(i18n.DefaultMessage), h.messenger.last().resp.Text)

	h.send(chat.Event{Kind: chat.EventOtherMedia})
	assert.Equal(t, string(i18n.StartOverMessage), h.messenger.last().resp.Text)
}

func TestTextWithAudioButNoModuleShowsSelector(t *testing.T) {
	h := newHarness(t)
	h.audio("f1", 100)
	h.text("what now?")
	assert.Equal(t, string(i18n.AskWhichModule), h.messenger.last().resp.Text)
}

func TestStartRegistersUserAndLanguage(t *testing.T) {
	h := newHarness(t)
	h.send(chat.Event{Kind: chat.EventCommand, Command: CommandStart, LanguageHint: "fa-IR"})

	assert.Contains(t, h.repo.users, testUserID)
	assert.Equal(t, "fa", h.session(t).Language)
	last := h.messenger.last().resp
	assert.Equal(t, string(i18n.ChooseLanguage), last.Text)
	assert.Equal(t, chat.ButtonLanguagePersian, last.Keyboard.Rows[0][1].ID)

	h.button(chat.ButtonLanguageEnglish)
	assert.Equal(t, "en", h.session(t).Language)

	h.audio("f1", 100)
	h.command(CommandNew, "")
	s := h.session(t)
	assert.False(t, s.HasIngestedAudio())
	assert.Equal(t, "en", s.Language)
	assert.Empty(t, h.userFiles(t))
}

func TestAdminCommands(t *testing.T) {
	h := newHarness(t)

	h.command(CommandAddAdmin, "55")
	assert.Empty(t, h.repo.admins, "non-owner must not add admins")

	h.send(chat.Event{Kind: chat.EventCommand, UserID: 1, Command: CommandAddAdmin, CommandArgs: "55"})
	assert.True(t, h.repo.admins[55])

	h.send(chat.Event{Kind: chat.EventCommand, UserID: 1, Command: CommandAddAdmin, CommandArgs: "abc"})
	assert.Equal(t, string(i18n.InvalidUserID), h.messenger.last().resp.Text)

	h.send(chat.Event{Kind: chat.EventCommand, UserID: 55, Command: CommandCountUsers})
	assert.True(t, strings.HasPrefix(h.messenger.last().resp.Text, string(i18n.UserCount)))

	h.send(chat.Event{Kind: chat.EventCommand, UserID: 1, Command: CommandDelAdmin, CommandArgs: "55"})
	assert.False(t, h.repo.admins[55])
	h.send(chat.Event{Kind: chat.EventCommand, UserID: 1, Command: CommandDelAdmin, CommandArgs: "55"})
	assert.True(t, strings.HasPrefix(h.messenger.last().resp.Text, string(i18n.NotAdmin)))
}

func TestHandlerPanicIsReported(t *testing.T) {
	h := newHarness(t)
	h.codec.panicked = true
	h.audio("f1", 100)

	assert.Equal(t, string(i18n.ErrUnexpected), h.messenger.last().resp.Text)

	h.codec.panicked = false
	h.audio("f2", 100)
	assert.True(t, h.session(t).HasIngestedAudio(), "user lock must be released after a panic")
}
