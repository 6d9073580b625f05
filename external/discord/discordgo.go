package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/foxseedlab/tunesmith/internal/chat"
)

const (
	commandPrefix     = "/"
	maxButtonsPerRow  = 5
	maxComponentsRows = 5
)

type fileFetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

type Client struct {
	session   *discordgo.Session
	token     string
	botUserID string
	fetcher   fileFetcher

	mu      sync.RWMutex
	handler chat.EventHandler
	ctx     context.Context
	wg      sync.WaitGroup
}

func NewClient(token string, fetcher fileFetcher) *Client {
	return &Client{
		token:   token,
		fetcher: fetcher,
		ctx:     context.Background(),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	s.AddHandler(c.onMessageCreate)
	s.AddHandler(c.onInteractionCreate)
	if err := s.Open(); err != nil {
		return err
	}
	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	slog.Info("discord bot connected", "bot_user_id", userID)
	return nil
}

func (c *Client) Close() error {
	var err error
	if c.session != nil {
		err = c.session.Close()
	}
	c.wg.Wait()
	return err
}

func (c *Client) RegisterEventHandler(handler chat.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Run blocks until ctx is cancelled. Gateway events arrive on discordgo's own
// goroutines and are handed to the handler with ctx.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	<-ctx.Done()
	return nil
}

func (c *Client) emit(ev chat.Event) {
	c.mu.RLock()
	handler, ctx := c.handler, c.ctx
	c.mu.RUnlock()
	if handler == nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		handler(ctx, ev)
	}()
}

func (c *Client) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil {
		return
	}
	if m.Author.Bot || m.Author.ID == c.botUserID {
		return
	}
	ev, ok := messageEvent(m.Message)
	if !ok {
		slog.Debug("ignored discord message", "message_id", m.ID, "author_id", m.Author.ID)
		return
	}
	c.emit(ev)
}

func (c *Client) onInteractionCreate(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic == nil || ic.Interaction == nil || ic.Type != discordgo.InteractionMessageComponent {
		return
	}
	if err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		slog.Debug("failed to acknowledge interaction", "interaction_id", ic.ID, "error", err)
	}
	ev, ok := interactionEvent(ic.Interaction)
	if !ok {
		slog.Debug("ignored discord interaction", "interaction_id", ic.ID)
		return
	}
	c.emit(ev)
}

func messageEvent(m *discordgo.Message) (chat.Event, bool) {
	userID, err := parseSnowflake(m.Author.ID)
	if err != nil {
		return chat.Event{}, false
	}
	ev := chat.Event{
		UserID:       userID,
		ChatID:       m.ChannelID,
		MessageID:    m.ID,
		LanguageHint: m.Author.Locale,
	}

	content := strings.TrimSpace(m.Content)
	switch {
	case strings.HasPrefix(content, commandPrefix):
		ev.Kind = chat.EventCommand
		ev.Command, ev.CommandArgs = splitCommand(content)
	case len(m.Attachments) > 0 && m.Attachments[0] != nil:
		a := m.Attachments[0]
		ref := &chat.MediaRef{
			FileID:          a.URL,
			FileName:        a.Filename,
			MimeType:        a.ContentType,
			SizeBytes:       int64(a.Size),
			DurationSeconds: int(math.Round(a.DurationSecs)),
		}
		switch {
		case strings.HasPrefix(a.ContentType, "audio/"):
			ev.Kind = chat.EventAudio
			ev.Media = ref
		case strings.HasPrefix(a.ContentType, "image/"):
			ev.Kind = chat.EventPhoto
			ev.Media = ref
		default:
			ev.Kind = chat.EventOtherMedia
		}
	case content != "":
		ev.Kind = chat.EventText
		ev.Text = content
	default:
		ev.Kind = chat.EventOtherMedia
	}
	return ev, true
}

func interactionEvent(i *discordgo.Interaction) (chat.Event, bool) {
	id, ok := chat.ParseButtonID(i.MessageComponentData().CustomID)
	if !ok {
		return chat.Event{}, false
	}
	var user *discordgo.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		user = i.User
	}
	if user == nil {
		return chat.Event{}, false
	}
	userID, err := parseSnowflake(user.ID)
	if err != nil {
		return chat.Event{}, false
	}
	ev := chat.Event{
		Kind:         chat.EventButton,
		UserID:       userID,
		ChatID:       i.ChannelID,
		LanguageHint: string(i.Locale),
		Button:       id,
	}
	if i.Message != nil {
		ev.MessageID = i.Message.ID
	}
	return ev, true
}

// splitCommand turns "/addadmin@tunesmith 42" into ("addadmin", "42").
func splitCommand(content string) (string, string) {
	body := strings.TrimPrefix(content, commandPrefix)
	name, args, _ := strings.Cut(body, " ")
	if i := strings.Index(name, "@"); i != -1 {
		name = name[:i]
	}
	return name, strings.TrimSpace(args)
}

func parseSnowflake(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}

func (c *Client) Send(ctx context.Context, chatID string, resp chat.Response) error {
	msg := &discordgo.MessageSend{
		Content:    resp.Text,
		Components: components(resp.Keyboard),
	}
	if resp.ReplyTo != "" {
		msg.Reference = &discordgo.MessageReference{MessageID: resp.ReplyTo, ChannelID: chatID}
	}
	if resp.Kind != chat.ResponseText {
		f, err := os.Open(resp.FilePath)
		if err != nil {
			return fmt.Errorf("failed to open attachment: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		name := filepath.Base(resp.FilePath)
		msg.Files = []*discordgo.File{{Name: name, ContentType: contentType(name), Reader: f}}
	}
	_, err := c.session.ChannelMessageSendComplex(chatID, msg, discordgo.WithContext(ctx))
	return err
}

func (c *Client) Download(ctx context.Context, media chat.MediaRef, destPath string) error {
	if media.FileID == "" {
		return errors.New("attachment has no url")
	}
	return c.fetcher.Fetch(ctx, media.FileID, destPath)
}

// Notify shows the typing indicator, the only activity Discord has.
func (c *Client) Notify(ctx context.Context, chatID string, _ chat.Activity) error {
	return c.session.ChannelTyping(chatID, discordgo.WithContext(ctx))
}

func (c *Client) GetBotUserID() (string, error) {
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

// components lays the keyboard out as action rows. Discord allows five
// buttons per row and five rows per message, so long rows wrap.
func components(kb *chat.Keyboard) []discordgo.MessageComponent {
	if kb == nil {
		return nil
	}
	var rows []discordgo.MessageComponent
	for _, r := range kb.Rows {
		for start := 0; start < len(r); start += maxButtonsPerRow {
			end := min(start+maxButtonsPerRow, len(r))
			buttons := make([]discordgo.MessageComponent, 0, end-start)
			for _, b := range r[start:end] {
				buttons = append(buttons, discordgo.Button{
					Label:    b.Label,
					Style:    discordgo.SecondaryButton,
					CustomID: string(b.ID),
				})
			}
			rows = append(rows, discordgo.ActionsRow{Components: buttons})
		}
	}
	if len(rows) > maxComponentsRows {
		slog.Warn("keyboard truncated", "rows", len(rows))
		rows = rows[:maxComponentsRows]
	}
	return rows
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
