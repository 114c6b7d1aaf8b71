package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aorestr/alpargatify/internal/domain"
	"github.com/aorestr/alpargatify/internal/library"
	"github.com/aorestr/alpargatify/internal/search"
)

const (
	searchResultLimit = 20
	coverArtSize      = 600
	helpText          = "Available commands:\n\n" +
		"/search <query> - fuzzy search albums by artist or title\n" +
		"/random - pick a random album from the collection\n" +
		"/stats - collection statistics\n" +
		"/help - this message"
)

// AlbumProvider yields the synchronized album collection. Satisfied by
// library.Service; non-forced calls are cheap when the cache is fresh.
type AlbumProvider interface {
	Sync(ctx context.Context, force bool) ([]domain.Album, error)
}

// Bot answers interactive commands in the authorized chat. Every other
// chat gets a refusal and nothing else.
type Bot struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	provider AlbumProvider
	searcher *search.Service
	status   domain.ServerStatus
	logger   *slog.Logger
}

// NewBot creates a bot serving commands over the provider's collection.
// status may be nil; /random then skips cover art.
func NewBot(api *tgbotapi.BotAPI, chatID int64, provider AlbumProvider, searcher *search.Service, status domain.ServerStatus, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:      api,
		chatID:   chatID,
		provider: provider,
		searcher: searcher,
		status:   status,
		logger:   logger,
	}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30

	updates := b.api.GetUpdatesChan(cfg)
	b.logger.Info("bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.ID != b.chatID {
		b.logger.Warn("command from unauthorized chat", "chat_id", msg.Chat.ID, "command", msg.Command())
		b.replyTo(msg.Chat.ID, "Sorry, I only talk to my owner.")
		return
	}

	b.logger.Info("handling command", "command", msg.Command())

	switch msg.Command() {
	case "search":
		b.handleSearch(ctx, msg.CommandArguments())
	case "random":
		b.handleRandom(ctx)
	case "stats":
		b.handleStats(ctx)
	case "start", "help":
		b.reply(helpText)
	default:
		b.reply("Unknown command. Try /help.")
	}
}

func (b *Bot) handleSearch(ctx context.Context, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		b.reply("Usage: /search <artist or album>")
		return
	}

	albums, err := b.collection(ctx)
	if err != nil {
		b.reply("The music server is not reachable right now.")
		return
	}

	b.searcher.Index(albums)
	results := b.searcher.Search(query, searchResultLimit)
	if len(results) == 0 {
		b.reply(fmt.Sprintf("Nothing in the collection matches %q.", query))
		return
	}

	text := FormatAlbumList(results, fmt.Sprintf("Results for %q", query))
	b.sendHTML(ctx, text)
}

func (b *Bot) handleRandom(ctx context.Context) {
	albums, err := b.collection(ctx)
	if err != nil {
		b.reply("The music server is not reachable right now.")
		return
	}

	album, ok := library.RandomAlbum(albums)
	if !ok {
		b.reply("The collection is empty.")
		return
	}

	caption := FormatAlbumList([]domain.Album{album}, "How about this one?")

	if b.status != nil && album.CoverArt != "" {
		art, err := b.status.CoverArt(ctx, album.CoverArt, coverArtSize)
		if err == nil && len(art) > 0 {
			photo := tgbotapi.NewPhoto(b.chatID, tgbotapi.FileBytes{Name: "cover.jpg", Bytes: art})
			photo.Caption = caption
			photo.ParseMode = tgbotapi.ModeHTML
			if _, err := b.api.Send(photo); err == nil {
				return
			}
			b.logger.Warn("cover art send failed, falling back to text", "album", album.ID)
		}
	}

	b.sendHTML(ctx, caption)
}

func (b *Bot) handleStats(ctx context.Context) {
	albums, err := b.collection(ctx)
	if err != nil {
		b.reply("The music server is not reachable right now.")
		return
	}

	stats := library.Stats(albums)
	var sb strings.Builder
	sb.WriteString("<b>Collection stats</b>\n\n")
	fmt.Fprintf(&sb, "💿 Albums: %d\n", stats.Albums)
	fmt.Fprintf(&sb, "👤 Artists: %d\n", stats.Artists)
	fmt.Fprintf(&sb, "🏷 Genres: %d\n", stats.Genres)
	fmt.Fprintf(&sb, "🎵 Songs: %d\n", stats.Songs)

	if b.status != nil {
		if scan, err := b.status.ScanStatus(ctx); err == nil {
			state := "idle"
			if scan.Scanning {
				state = "scanning"
			}
			fmt.Fprintf(&sb, "\n🔍 Server scan: %s (%d entries)\n", state, scan.Count)
		}
		if playing, err := b.status.NowPlaying(ctx); err == nil && len(playing) > 0 {
			sb.WriteString("\n<b>Now playing</b>\n")
			for _, entry := range playing {
				fmt.Fprintf(&sb, "▶️ %s - %s (%s)\n",
					html.EscapeString(entry.Artist), html.EscapeString(entry.Title), html.EscapeString(entry.Username))
			}
		}
	}

	b.sendHTML(ctx, sb.String())
}

// collection refreshes the cache and returns whatever collection is
// available. A sync error with a non-empty result still serves stale
// data rather than failing the command.
func (b *Bot) collection(ctx context.Context) ([]domain.Album, error) {
	albums, err := b.provider.Sync(ctx, false)
	if err != nil {
		b.logger.Warn("sync failed while handling command", "error", err)
		if len(albums) == 0 {
			return nil, err
		}
	}
	return albums, nil
}

func (b *Bot) sendHTML(ctx context.Context, text string) {
	if text == "" {
		return
	}
	sender := NewSender(b.api, b.chatID, b.logger)
	if err := sender.Send(ctx, text); err != nil {
		b.logger.Error("failed to deliver reply", "error", err)
	}
}

func (b *Bot) reply(text string) {
	b.replyTo(b.chatID, text)
}

func (b *Bot) replyTo(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("failed to send reply", "error", err)
	}
}
