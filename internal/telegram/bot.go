package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/guanke/assistbot/internal/bot"
)

// maxDownloadSize matches the Bot API getFile limit.
const maxDownloadSize = 20 << 20

// UpdateHandler processes one update to completion.
type UpdateHandler func(ctx context.Context, update tgbotapi.Update)

// Bot is the Telegram side of the assistant: it polls updates, sends replies
// and downloads uploaded files.
type Bot struct {
	api   *tgbotapi.BotAPI
	token string
	http  *http.Client
}

// New authorizes token against the Bot API.
func New(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:   api,
		token: token,
		http:  &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Username is the bot's own @handle.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run starts processing Telegram updates one at a time until ctx is done.
func (b *Bot) Run(ctx context.Context, handle UpdateHandler) error {
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Register and share your phone number"},
		{Command: "websearch", Description: "Search the web: /websearch <query>"},
	}
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		slog.Error("set commands failed", "error", err)
	}

	slog.Info("Bot authorized", "username", b.Username())
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)
	defer b.api.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("telegram update channel closed")
			}
			handle(ctx, update)
		}
	}
}

// Send delivers r, attaching a contact-request keyboard when asked.
func (b *Bot) Send(ctx context.Context, r bot.Reply) error {
	msg := tgbotapi.NewMessage(r.ChatID, r.Text)
	msg.ReplyToMessageID = r.ReplyToMessageID
	if r.RequestContact {
		msg.ReplyMarkup = contactKeyboard()
	}
	_, err := b.api.Send(msg)
	return err
}

// Download fetches the content of an uploaded file.
func (b *Bot) Download(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file info: %w", err)
	}
	return fetch(ctx, b.http, file.Link(b.token))
}

func contactKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewOneTimeReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact("Share phone number")),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		// the link embeds the bot token, keep it out of errors
		return nil, fmt.Errorf("download failed: %w", unwrapURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("file exceeds %d bytes", maxDownloadSize)
	}
	return data, nil
}

func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
