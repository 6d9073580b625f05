package workflow

import (
	"errors"
	"fmt"
	"os"

	"github.com/foxseedlab/tunesmith/internal/chat"
	"github.com/foxseedlab/tunesmith/internal/i18n"
	"github.com/foxseedlab/tunesmith/internal/media"
	"github.com/foxseedlab/tunesmith/internal/session"
)

var fieldButtons = map[chat.ButtonID]session.TagField{
	chat.ButtonArtist:      session.FieldArtist,
	chat.ButtonTitle:       session.FieldTitle,
	chat.ButtonAlbum:       session.FieldAlbum,
	chat.ButtonGenre:       session.FieldGenre,
	chat.ButtonYear:        session.FieldYear,
	chat.ButtonDiskNumber:  session.FieldDiskNumber,
	chat.ButtonTrackNumber: session.FieldTrackNumber,
	chat.ButtonAlbumArt:    session.FieldAlbumArt,
}

var fieldPrompts = map[session.TagField]i18n.Key{
	session.FieldArtist:      i18n.AskForArtist,
	session.FieldTitle:       i18n.AskForTitle,
	session.FieldAlbum:       i18n.AskForAlbum,
	session.FieldGenre:       i18n.AskForGenre,
	session.FieldYear:        i18n.AskForYear,
	session.FieldDiskNumber:  i18n.AskForDiskNumber,
	session.FieldTrackNumber: i18n.AskForTrackNumber,
	session.FieldAlbumArt:    i18n.AskForAlbumArt,
}

func (t *turn) handleButton() error {
	switch t.ev.Button {
	case chat.ButtonLanguageEnglish:
		return t.setLanguage("en")
	case chat.ButtonLanguagePersian:
		return t.setLanguage("fa")
	case chat.ButtonNewFile:
		return t.startOver()
	case chat.ButtonBack:
		return t.unrecognized()
	}

	if !t.s.HasIngestedAudio() {
		return t.replyKey(i18n.DefaultMessage, nil)
	}

	switch t.ev.Button {
	case chat.ButtonTagEditor:
		return t.openTagEditor()
	case chat.ButtonMusicCutter:
		return t.openMusicCutter()
	case chat.ButtonVoiceConverter:
		return t.convertToVoice()
	case chat.ButtonBitrateChanger:
		return t.changeBitrate()
	}

	if field, ok := fieldButtons[t.ev.Button]; ok {
		return t.selectField(field)
	}
	t.log.Warn("unknown button", "button", string(t.ev.Button))
	return t.unrecognized()
}

func (t *turn) openTagEditor() error {
	if err := t.s.SelectModule(session.ModuleTagEditor); err != nil {
		return err
	}
	info := buildTagInfo(t.tr, t.s.TagEditor, t.signature())
	if artwork := t.s.PreviewArtwork(); artwork != "" {
		return t.reply(chat.Response{Kind: chat.ResponsePhoto, FilePath: artwork, Text: info, Keyboard: tagKeyboard(t.tr)})
	}
	return t.replyText(info, tagKeyboard(t.tr))
}

func (t *turn) selectField(field session.TagField) error {
	err := t.s.SelectField(field)
	switch {
	case errors.Is(err, session.ErrWrongModule):
		return t.showModuleSelector()
	case err != nil:
		return err
	}
	return t.replyKey(fieldPrompts[field], nil)
}

func (t *turn) openMusicCutter() error {
	if err := t.s.SelectModule(session.ModuleMusicCutter); err != nil {
		return err
	}
	return t.replyText(t.cutterHelp(), backKeyboard(t.tr))
}

func (t *turn) cutterHelp() string {
	return t.trf(i18n.MusicCutterHelp, formatDuration(t.s.AudioDurationSeconds))
}

func (t *turn) handleText() error {
	if !t.s.HasIngestedAudio() {
		return t.replyKey(i18n.DefaultMessage, nil)
	}
	switch t.s.ActiveModule {
	case session.ModuleTagEditor:
		return t.receiveTagValue()
	case session.ModuleMusicCutter:
		return t.cut()
	default:
		return t.showModuleSelector()
	}
}

func (t *turn) receiveTagValue() error {
	_, err := t.s.SetFieldValue(t.ev.Text)
	switch {
	case errors.Is(err, session.ErrNoFieldPending):
		return t.replyKey(i18n.AskWhichTag, tagKeyboard(t.tr))
	case errors.Is(err, session.ErrArtworkExpected):
		return t.replyKey(i18n.AskForAlbumArt, tagKeyboard(t.tr))
	case err != nil:
		return err
	}
	return t.replyText(acknowledgement(t.tr, i18n.Done), tagKeyboard(t.tr))
}

// cut extracts the requested range. Invalid input keeps the cutter active so
// the user can try again.
func (t *turn) cut() error {
	start, end, err := ParseRange(t.ev.Text)
	if err == nil {
		err = ValidateRange(start, end, t.s.AudioDurationSeconds)
	}
	var rangeErr *RangeError
	if errors.As(err, &rangeErr) {
		t.log.Info("rejected cut range", "input", t.ev.Text, "reason", rangeErr.Kind.String())
		switch rangeErr.Kind {
		case RangeMalformed:
			return t.replyText(t.trf(i18n.ErrMalformedRange, t.cutterHelp()), backKeyboard(t.tr))
		case RangeOutOfRange:
			if err := t.replyText(t.trf(i18n.ErrOutOfRange, formatDuration(t.s.AudioDurationSeconds)), nil); err != nil {
				return err
			}
			return t.replyText(t.cutterHelp(), backKeyboard(t.tr))
		default:
			return t.replyKey(i18n.ErrBeginningAfter, backKeyboard(t.tr))
		}
	}

	t.notify(chat.ActivityUploadAudio)
	out, err := t.transcoder.CutRange(t.ctx, t.s.SourceAudioPath, start, end)
	if err != nil {
		return t.replyError(err, backKeyboard(t.tr))
	}
	defer t.files.Release(out)

	if err := t.writeTags(out, t.s.PreviewArtwork()); err != nil {
		t.log.Warn("failed to copy tags into cut file", "path", out, "error", err)
	}

	sendErr := t.reply(chat.Response{
		Kind:            chat.ResponseAudio,
		FilePath:        out,
		DurationSeconds: end - start,
		Text:            cutCaption(t.tr, start, end, t.signature()),
		Keyboard:        newFileKeyboard(t.tr),
		ReplyTo:         t.s.SourceMessageRef,
	})
	t.resetSession()
	return sendErr
}

// convertToVoice runs without a further prompt and always leaves the module.
func (t *turn) convertToVoice() error {
	if err := t.s.SelectModule(session.ModuleVoiceConverter); err != nil {
		return err
	}
	t.notify(chat.ActivityRecordVoice)
	out, err := t.transcoder.ToVoiceNote(t.ctx, t.s.SourceAudioPath)
	if err != nil {
		t.s.ClearModule()
		return t.replyError(err, moduleKeyboard(t.tr))
	}
	defer t.files.Release(out)

	t.notify(chat.ActivityUploadAudio)
	sendErr := t.reply(chat.Response{
		Kind:            chat.ResponseVoice,
		FilePath:        out,
		DurationSeconds: t.s.AudioDurationSeconds,
		Text:            t.signature(),
		Keyboard:        newFileKeyboard(t.tr),
		ReplyTo:         t.s.SourceMessageRef,
	})
	t.resetSession()
	return sendErr
}

func (t *turn) changeBitrate() error {
	if err := t.s.SelectModule(session.ModuleBitrateChanger); err != nil {
		return err
	}
	out, err := t.transcoder.Reencode(t.ctx, t.s.SourceAudioPath, t.cfg.VoiceBitrateKbps)
	if err != nil {
		t.s.ClearModule()
		return t.replyError(err, backKeyboard(t.tr))
	}
	defer t.files.Release(out)

	sendErr := t.reply(chat.Response{
		Kind:            chat.ResponseAudio,
		FilePath:        out,
		DurationSeconds: t.s.AudioDurationSeconds,
		Text:            t.signature(),
		Keyboard:        newFileKeyboard(t.tr),
		ReplyTo:         t.s.SourceMessageRef,
	})
	t.resetSession()
	return sendErr
}

// finishEditing commits the edited tags and delivers the audio. A failed
// write is reported, but the file is still delivered.
func (t *turn) finishEditing() error {
	if !t.s.HasIngestedAudio() {
		return t.replyKey(i18n.DefaultMessage, nil)
	}
	t.notify(chat.ActivityUploadAudio)

	if err := t.writeTags(t.s.SourceAudioPath, t.s.PendingArtworkPath); err != nil {
		if sendErr := t.replyError(err, nil); sendErr != nil {
			t.log.Warn("failed to report tag write failure", "error", sendErr)
		}
	}

	sendErr := t.reply(chat.Response{
		Kind:            chat.ResponseAudio,
		FilePath:        t.s.SourceAudioPath,
		DurationSeconds: t.s.AudioDurationSeconds,
		Text:            t.signature(),
		Keyboard:        newFileKeyboard(t.tr),
		ReplyTo:         t.s.SourceMessageRef,
	})
	t.resetSession()
	return sendErr
}

// writeTags stores the edited tag values into path, replacing the cover
// with the file at artworkPath when one is given.
func (t *turn) writeTags(path, artworkPath string) error {
	tags, err := t.s.TagEditor.TagSet()
	if err != nil {
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
	}
	var artwork []byte
	if artworkPath != "" {
		artwork, err = os.ReadFile(artworkPath)
		if err != nil {
			return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: fmt.Errorf("read artwork: %w", err)}
		}
	}
	return t.codec.Write(path, tags, artwork)
}
