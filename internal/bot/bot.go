package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/guanke/assistbot/internal/search"
	"github.com/guanke/assistbot/internal/store"
)

const defaultTimeout = 60 * time.Second

// Reply is the single outbound message produced for a handled update.
type Reply struct {
	ChatID           int64
	ReplyToMessageID int
	Text             string
	// RequestContact attaches a one-button keyboard asking for the phone number.
	RequestContact bool
}

// Messenger is the platform side: send a reply and fetch uploaded files.
type Messenger interface {
	Send(ctx context.Context, r Reply) error
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Searcher returns ranked web results for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// Scorer returns a sentiment polarity in [-1, 1].
type Scorer interface {
	Polarity(text string) float64
}

// Archiver stores a copy of an uploaded file.
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Deps are the collaborators every handler draws from. Archiver is optional.
type Deps struct {
	Store     store.Store
	Messenger Messenger
	Generator Generator
	Searcher  Searcher
	Scorer    Scorer
	Archiver  Archiver

	// Timeout bounds the handling of one update. Zero means one minute.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Dispatcher routes each update to exactly one handler and sends at most one
// reply for it.
type Dispatcher struct {
	store     store.Store
	messenger Messenger
	generator Generator
	searcher  Searcher
	scorer    Scorer
	archiver  Archiver
	timeout   time.Duration
	log       *slog.Logger
}

// New validates deps and builds a Dispatcher.
func New(d Deps) (*Dispatcher, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("bot: store is required")
	case d.Messenger == nil:
		return nil, errors.New("bot: messenger is required")
	case d.Generator == nil:
		return nil, errors.New("bot: generator is required")
	case d.Searcher == nil:
		return nil, errors.New("bot: searcher is required")
	case d.Scorer == nil:
		return nil, errors.New("bot: scorer is required")
	}
	if d.Timeout <= 0 {
		d.Timeout = defaultTimeout
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Dispatcher{
		store:     d.Store,
		messenger: d.Messenger,
		generator: d.Generator,
		searcher:  d.Searcher,
		scorer:    d.Scorer,
		archiver:  d.Archiver,
		timeout:   d.Timeout,
		log:       d.Logger,
	}, nil
}

// Route names the handler an update is bound to.
type Route int

const (
	RouteNone Route = iota
	RouteStart
	RouteWebSearch
	RouteContact
	RouteDocument
	RouteText
)

func (r Route) String() string {
	switch r {
	case RouteStart:
		return "start"
	case RouteWebSearch:
		return "websearch"
	case RouteContact:
		return "contact"
	case RouteDocument:
		return "document"
	case RouteText:
		return "text"
	default:
		return "none"
	}
}

// RouteOf picks the handler for msg by precedence: known command, contact,
// document or photo, plain text. Anything else, including unknown commands,
// is RouteNone.
func RouteOf(msg *tgbotapi.Message) Route {
	if msg == nil || msg.Chat == nil {
		return RouteNone
	}
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return RouteStart
		case "websearch":
			return RouteWebSearch
		default:
			return RouteNone
		}
	}
	switch {
	case msg.Contact != nil:
		return RouteContact
	case msg.Document != nil || len(msg.Photo) > 0:
		return RouteDocument
	case msg.Text != "":
		return RouteText
	default:
		return RouteNone
	}
}

// Dispatch handles one update to completion. A handler error is logged and
// answered with a generic failure notice instead of the handler's reply.
func (d *Dispatcher) Dispatch(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	route := RouteOf(msg)
	if route == RouteNone {
		d.log.Debug("update dropped", "update_id", update.UpdateID)
		return
	}

	log := d.log.With("update_id", update.UpdateID, "chat_id", msg.Chat.ID, "handler", route.String())
	log.Debug("update received")

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	reply, err := d.handle(ctx, route, msg)
	if err != nil {
		log.Error("handler failed", "error", err)
		reply = &Reply{Text: failureText}
	}
	if reply == nil {
		return
	}
	reply.ChatID = msg.Chat.ID
	reply.ReplyToMessageID = msg.MessageID
	if err := d.messenger.Send(context.WithoutCancel(ctx), *reply); err != nil {
		log.Error("send reply failed", "error", err)
	}
}

func (d *Dispatcher) handle(ctx context.Context, route Route, msg *tgbotapi.Message) (*Reply, error) {
	switch route {
	case RouteStart:
		return d.handleStart(ctx, msg)
	case RouteWebSearch:
		return d.handleWebSearch(ctx, msg)
	case RouteContact:
		return d.handleContact(ctx, msg)
	case RouteDocument:
		return d.handleDocument(ctx, msg)
	case RouteText:
		return d.handleText(ctx, msg)
	default:
		return nil, nil
	}
}
