package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/foxseedlab/tunesmith/internal/chat"
	"github.com/foxseedlab/tunesmith/internal/i18n"
)

const (
	CommandStart      = "start"
	CommandNew        = "new"
	CommandLanguage   = "language"
	CommandHelp       = "help"
	CommandAbout      = "about"
	CommandDone       = "done"
	CommandPreview    = "preview"
	CommandAddAdmin   = "addadmin"
	CommandDelAdmin   = "deladmin"
	CommandCountUsers = "countusers"
)

func (t *turn) handleCommand() error {
	switch strings.ToLower(t.ev.Command) {
	case CommandStart:
		return t.start()
	case CommandNew:
		return t.startOver()
	case CommandLanguage:
		return t.replyKey(i18n.ChooseLanguage, languageKeyboard(t.tr))
	case CommandHelp:
		return t.replyKey(i18n.HelpMessage, nil)
	case CommandAbout:
		return t.replyKey(i18n.AboutMessage, nil)
	case CommandDone:
		return t.finishEditing()
	case CommandPreview:
		return t.preview()
	case CommandAddAdmin:
		return t.addAdmin()
	case CommandDelAdmin:
		return t.removeAdmin()
	case CommandCountUsers:
		return t.countUsers()
	default:
		return t.replyKey(i18n.HelpMessage, nil)
	}
}

func (t *turn) start() error {
	t.resetSession()

	user, err := t.users.FindUser(t.ctx, t.ev.UserID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		if _, err := t.users.CreateUser(t.ctx, t.ev.UserID); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		t.log.Info("user registered")
	}

	if err := t.replyKey(i18n.StartMessage, nil); err != nil {
		return err
	}
	return t.replyKey(i18n.ChooseLanguage, languageKeyboard(t.tr))
}

func (t *turn) startOver() error {
	t.resetSession()
	return t.replyKey(i18n.StartOverMessage, nil)
}

func (t *turn) setLanguage(lang string) error {
	t.s.Language = lang
	if err := t.replyKey(i18n.LanguageChanged, nil); err != nil {
		return err
	}
	return t.replyKey(i18n.StartOverMessage, nil)
}

// preview shows the edited tags without touching the session.
func (t *turn) preview() error {
	if !t.s.HasIngestedAudio() {
		return t.replyKey(i18n.DefaultMessage, nil)
	}
	info := buildTagInfo(t.tr, t.s.TagEditor, t.signature())
	if artwork := t.s.PreviewArtwork(); artwork != "" {
		return t.reply(chat.Response{Kind: chat.ResponsePhoto, FilePath: artwork, Text: info})
	}
	return t.replyText(info, nil)
}

func (t *turn) addAdmin() error {
	if !t.cfg.IsOwner(t.ev.UserID) {
		t.log.Info("ignored admin command from non-owner")
		return nil
	}
	id, ok := parseUserID(t.ev.CommandArgs)
	if !ok {
		return t.replyKey(i18n.InvalidUserID, nil)
	}
	if err := t.users.AddAdmin(t.ctx, id); err != nil {
		return fmt.Errorf("add admin: %w", err)
	}
	t.log.Info("admin added", "admin_user_id", id)
	return t.replyText(t.trf(i18n.AdminAdded, id), nil)
}

func (t *turn) removeAdmin() error {
	if !t.cfg.IsOwner(t.ev.UserID) {
		t.log.Info("ignored admin command from non-owner")
		return nil
	}
	id, ok := parseUserID(t.ev.CommandArgs)
	if !ok {
		return t.replyKey(i18n.InvalidUserID, nil)
	}
	isAdmin, err := t.users.IsAdmin(t.ctx, id)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if !isAdmin {
		return t.replyText(t.trf(i18n.NotAdmin, id), nil)
	}
	if err := t.users.RemoveAdmin(t.ctx, id); err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}
	t.log.Info("admin removed", "admin_user_id", id)
	return t.replyText(t.trf(i18n.AdminRemoved, id), nil)
}

func (t *turn) countUsers() error {
	allowed := t.cfg.IsOwner(t.ev.UserID)
	if !allowed {
		isAdmin, err := t.users.IsAdmin(t.ctx, t.ev.UserID)
		if err != nil {
			return fmt.Errorf("check admin: %w", err)
		}
		allowed = isAdmin
	}
	if !allowed {
		t.log.Info("ignored count command from non-admin")
		return nil
	}
	n, err := t.users.CountUsers(t.ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	return t.replyText(t.trf(i18n.UserCount, n), nil)
}

func parseUserID(args string) (int64, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
