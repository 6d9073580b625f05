package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/foxseedlab/tunesmith/internal/chat"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const updateTimeoutSec = 60

// botAPI is the subset of *tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type fileFetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

type Client struct {
	token   string
	api     botAPI
	fetcher fileFetcher

	mu      sync.RWMutex
	handler chat.EventHandler
	wg      sync.WaitGroup
}

func NewClient(token string, fetcher fileFetcher) *Client {
	return &Client{token: token, fetcher: fetcher}
}

func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	api, err := tgbotapi.NewBotAPI(c.token)
	if err != nil {
		return fmt.Errorf("failed to create bot API: %w", err)
	}
	slog.Info("telegram bot authenticated", "username", api.Self.UserName, "bot_id", api.Self.ID)
	c.api = api
	return nil
}

func (c *Client) Close() error {
	c.wg.Wait()
	return nil
}

func (c *Client) RegisterEventHandler(handler chat.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Run long-polls for updates until ctx is cancelled. Each update is handled
// on its own goroutine; Run waits for in-flight handlers before returning.
func (c *Client) Run(ctx context.Context) error {
	if c.api == nil {
		return errors.New("telegram client is not connected")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeoutSec
	updates := c.api.GetUpdatesChan(u)

	defer c.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.dispatch(ctx, update)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, update tgbotapi.Update) {
	if cq := update.CallbackQuery; cq != nil {
		if _, err := c.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			slog.Debug("failed to answer callback query", "update_id", update.UpdateID, "error", err)
		}
	}
	ev, ok := toEvent(update)
	if !ok {
		slog.Debug("ignored telegram update", "update_id", update.UpdateID)
		return
	}

	c.mu.RLock()
	handler := c.handler
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

// Send does not start an API call once ctx is done. The bot API client has
// no per-request context, so a call already in flight runs to completion.
func (c *Client) Send(ctx context.Context, chatID string, resp chat.Response) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	msg, err := toChattable(id, resp)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = c.api.Send(msg)
	if isEntityParseError(err) && ctx.Err() == nil {
		slog.Debug("resending without markdown", "chat_id", chatID, "error", err)
		_, err = c.api.Send(plain(msg))
	}
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (c *Client) Download(ctx context.Context, media chat.MediaRef, destPath string) error {
	url, err := c.api.GetFileDirectURL(media.FileID)
	if err != nil {
		return fmt.Errorf("failed to resolve file %s: %w", media.FileID, err)
	}
	return c.fetcher.Fetch(ctx, url, destPath)
}

func (c *Client) Notify(ctx context.Context, chatID string, activity chat.Activity) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = c.api.Request(tgbotapi.NewChatAction(id, chatAction(activity)))
	return err
}

// isEntityParseError reports Telegram rejecting Markdown in user-supplied
// text, e.g. an unbalanced underscore in a tag value.
func isEntityParseError(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 400 && strings.Contains(apiErr.Message, "can't parse entities")
}
