package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/guanke/assistbot/internal/filetype"
	"github.com/guanke/assistbot/internal/r2"
	"github.com/guanke/assistbot/internal/search"
	"github.com/guanke/assistbot/internal/sentiment"
	"github.com/guanke/assistbot/internal/store"
)

const (
	welcomeBackText   = "Welcome back!"
	onboardingText    = "Welcome! Please share your phone number using the contact button."
	contactSavedText  = "Thank you! Your phone number has been saved."
	imageAnalysisText = "Image Analysis: This is an image file."
	pdfAnalysisText   = "PDF Analysis: This is a PDF file."
	searchPromptText  = "Please provide a search query."
	noResultsText     = "No search results found."
	failureText       = "Sorry, something went wrong. Please try again later."

	maxSearchResults = 5
)

func (d *Dispatcher) handleStart(ctx context.Context, msg *tgbotapi.Message) (*Reply, error) {
	chatID := msg.Chat.ID
	_, err := d.store.FindUser(ctx, chatID)
	if err == nil {
		return &Reply{Text: welcomeBackText}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	user := &store.User{ChatID: chatID}
	if msg.From != nil {
		user.FirstName = msg.From.FirstName
		user.Username = msg.From.UserName
	}
	if err := d.store.InsertUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return &Reply{Text: welcomeBackText}, nil
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &Reply{Text: onboardingText, RequestContact: true}, nil
}

// handleContact only updates an existing user; a share from an unknown chat
// matches nothing and is still acknowledged.
func (d *Dispatcher) handleContact(ctx context.Context, msg *tgbotapi.Message) (*Reply, error) {
	matched, err := d.store.SetPhoneNumber(ctx, msg.Chat.ID, msg.Contact.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("set phone number: %w", err)
	}
	if !matched {
		d.log.Debug("contact from unknown chat", "chat_id", msg.Chat.ID)
	}
	return &Reply{Text: contactSavedText}, nil
}

// handleText answers with the completion and a sentiment emoji. History is
// written before the reply, so a failed generation or insert sends neither.
func (d *Dispatcher) handleText(ctx context.Context, msg *tgbotapi.Message) (*Reply, error) {
	emoji := sentiment.Emoji(d.scorer.Polarity(msg.Text))

	completion, err := d.generator.Generate(ctx, msg.Text)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	entry := &store.ChatHistoryEntry{
		ChatID:      msg.Chat.ID,
		UserInput:   msg.Text,
		BotResponse: completion,
		Timestamp:   msg.Time(),
	}
	if err := d.store.InsertChatHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert chat history: %w", err)
	}
	return &Reply{Text: fmt.Sprintf("%s %s", completion, emoji)}, nil
}

type upload struct {
	id          string
	name        string
	size        int
	contentType string
}

func uploadOf(msg *tgbotapi.Message) upload {
	if msg.Document != nil {
		return upload{
			id:          msg.Document.FileID,
			name:        msg.Document.FileName,
			size:        msg.Document.FileSize,
			contentType: msg.Document.MimeType,
		}
	}
	// Telegram re-encodes photos as JPEG; the last size is the largest.
	p := msg.Photo[len(msg.Photo)-1]
	return upload{
		id:          p.FileID,
		name:        fmt.Sprintf("photo_%s.jpg", p.FileUniqueID),
		size:        p.FileSize,
		contentType: "image/jpeg",
	}
}

// handleDocument records the file before looking at it. Unrecognized kinds get
// no reply.
func (d *Dispatcher) handleDocument(ctx context.Context, msg *tgbotapi.Message) (*Reply, error) {
	up := uploadOf(msg)
	rec := &store.FileRecord{
		ChatID:    msg.Chat.ID,
		FileName:  up.name,
		FileID:    up.id,
		FileSize:  up.size,
		Timestamp: msg.Time(),
	}
	if err := d.store.InsertFile(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}

	kind := filetype.Classify(up.name)

	var data []byte
	if kind == filetype.Image || d.archiver != nil {
		var err error
		data, err = d.messenger.Download(ctx, up.id)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", up.id, err)
		}
	}
	if d.archiver != nil {
		key := r2.ObjectKey(msg.Chat.ID, up.id, up.name)
		location, err := d.archiver.Archive(ctx, key, data, up.contentType)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		d.log.Debug("file archived", "chat_id", msg.Chat.ID, "file_id", up.id, "location", location)
	}

	switch kind {
	case filetype.Image:
		format, w, h, err := filetype.DecodeImage(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", up.name, err)
		}
		d.log.Debug("image received", "chat_id", msg.Chat.ID, "format", format, "width", w, "height", h)
		return &Reply{Text: imageAnalysisText}, nil
	case filetype.PDF:
		return &Reply{Text: pdfAnalysisText}, nil
	case filetype.Unrecognized:
		return nil, nil
	default:
		return nil, fmt.Errorf("unhandled file kind %v", kind)
	}
}

func (d *Dispatcher) handleWebSearch(ctx context.Context, msg *tgbotapi.Message) (*Reply, error) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return &Reply{Text: searchPromptText}, nil
	}

	results, err := d.searcher.Search(ctx, strings.Join(args, " "))
	if errors.Is(err, search.ErrMalformedResponse) {
		d.log.Warn("malformed search response", "error", err)
		return &Reply{Text: noResultsText}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(search.Top(results, maxSearchResults)) == 0 {
		return &Reply{Text: noResultsText}, nil
	}
	return &Reply{Text: search.FormatTop(results, maxSearchResults)}, nil
}
