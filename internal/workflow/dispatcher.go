// Package workflow turns inbound chat events into session transitions and
// outbound responses.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/foxseedlab/tunesmith/internal/chat"
	"github.com/foxseedlab/tunesmith/internal/config"
	"github.com/foxseedlab/tunesmith/internal/files"
	"github.com/foxseedlab/tunesmith/internal/i18n"
	"github.com/foxseedlab/tunesmith/internal/media"
	"github.com/foxseedlab/tunesmith/internal/repository"
	"github.com/foxseedlab/tunesmith/internal/session"
	"github.com/google/uuid"
)

type Deps struct {
	Config     *config.Config
	Sessions   *session.Manager
	Users      repository.Repository
	Codec      media.TagCodec
	Transcoder media.Transcoder
	Prober     media.Prober
	Files      *files.Lifecycle
	Translator i18n.Translator
	Messenger  chat.Messenger
}

type Dispatcher struct {
	cfg        *config.Config
	sessions   *session.Manager
	users      repository.Repository
	codec      media.TagCodec
	transcoder media.Transcoder
	prober     media.Prober
	files      *files.Lifecycle
	translator i18n.Translator
	messenger  chat.Messenger
}

func NewDispatcher(d Deps) *Dispatcher {
	return &Dispatcher{
		cfg:        d.Config,
		sessions:   d.Sessions,
		users:      d.Users,
		codec:      d.Codec,
		transcoder: d.Transcoder,
		prober:     d.Prober,
		files:      d.Files,
		translator: d.Translator,
		messenger:  d.Messenger,
	}
}

// turn is the handling of a single event under the user's session lock.
type turn struct {
	*Dispatcher
	ctx context.Context
	ev  chat.Event
	s   *session.Session
	log *slog.Logger
}

// Handle processes one event. It never returns an error: every failure ends
// as a message to the user and a log line.
func (d *Dispatcher) Handle(ctx context.Context, ev chat.Event) {
	logger := slog.With(
		"event_id", uuid.NewString(),
		"user_id", ev.UserID,
		"chat_id", ev.ChatID,
		"event", ev.Kind.String(),
	)
	lang := d.cfg.DefaultLanguage

	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked", "panic", r, "stack", string(debug.Stack()))
			d.sendFailure(ctx, ev, lang, logger)
		}
	}()

	err := d.sessions.WithSession(ctx, ev.UserID, func(s *session.Session) error {
		if s.Language == "" {
			s.Language = d.initialLanguage(ev.LanguageHint)
		}
		lang = s.Language
		t := &turn{Dispatcher: d, ctx: ctx, ev: ev, s: s, log: logger.With("module", string(s.ActiveModule))}
		return t.route()
	})
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("event abandoned", "error", err)
		return
	}
	logger.Error("failed to handle event", "error", err)
	d.sendFailure(ctx, ev, lang, logger)
}

func (d *Dispatcher) sendFailure(ctx context.Context, ev chat.Event, lang string, logger *slog.Logger) {
	resp := chat.Response{Kind: chat.ResponseText, Text: d.translator.Translate(i18n.ErrUnexpected, lang), ReplyTo: ev.MessageID}
	if err := d.messenger.Send(ctx, ev.ChatID, resp); err != nil {
		logger.Warn("failed to send error message", "error", err)
	}
}

func (d *Dispatcher) initialLanguage(hint string) string {
	if hint != "" {
		if lang := d.translator.Match(hint); lang != "" {
			return lang
		}
	}
	return d.cfg.DefaultLanguage
}

func (t *turn) route() error {
	switch t.ev.Kind {
	case chat.EventCommand:
		return t.handleCommand()
	case chat.EventButton:
		return t.handleButton()
	case chat.EventText:
		return t.handleText()
	case chat.EventPhoto:
		return t.handlePhoto()
	case chat.EventAudio:
		return t.handleAudio()
	default:
		return t.replyKey(i18n.StartOverMessage, nil)
	}
}

func (t *turn) tr(key i18n.Key) string {
	return t.translator.Translate(key, t.s.Language)
}

func (t *turn) trf(key i18n.Key, args ...any) string {
	return fmt.Sprintf(t.tr(key), args...)
}

func (t *turn) reply(resp chat.Response) error {
	if resp.ReplyTo == "" {
		resp.ReplyTo = t.ev.MessageID
	}
	if err := t.messenger.Send(t.ctx, t.ev.ChatID, resp); err != nil {
		return fmt.Errorf("send %d response: %w", resp.Kind, err)
	}
	return nil
}

func (t *turn) replyText(text string, kb *chat.Keyboard) error {
	return t.reply(chat.Response{Kind: chat.ResponseText, Text: text, Keyboard: kb})
}

func (t *turn) replyKey(key i18n.Key, kb *chat.Keyboard) error {
	return t.replyText(t.tr(key), kb)
}

// replyError reports a failed action. Only send failures are returned.
func (t *turn) replyError(err error, kb *chat.Keyboard) error {
	key := errorMessageKey(err)
	t.log.Warn("action failed", "error", err, "message_key", string(key))
	return t.replyKey(key, kb)
}

func (t *turn) notify(activity chat.Activity) {
	if err := t.messenger.Notify(t.ctx, t.ev.ChatID, activity); err != nil {
		t.log.Debug("failed to send chat activity", "error", err)
	}
}

func (t *turn) signature() string {
	return t.cfg.BotUsername
}

// resetSession returns the session to Idle and deletes its working files.
func (t *turn) resetSession() {
	t.files.Release(t.s.Reset()...)
}

func (t *turn) showModuleSelector() error {
	t.s.ClearModule()
	return t.replyKey(i18n.AskWhichModule, moduleKeyboard(t.tr))
}

// unrecognized answers events that do not fit the current state.
func (t *turn) unrecognized() error {
	if !t.s.HasIngestedAudio() {
		return t.replyKey(i18n.DefaultMessage, nil)
	}
	return t.showModuleSelector()
}
