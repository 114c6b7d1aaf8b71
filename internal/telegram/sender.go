package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aorestr/alpargatify/internal/domain"
)

// maxMessageLength is Telegram's hard per-message character limit.
const maxMessageLength = 4096

// Sender delivers HTML-formatted messages to the authorized chat,
// splitting anything over Telegram's length limit. Implements
// domain.Notifier.
type Sender struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// NewSender creates a sender bound to one chat.
func NewSender(api *tgbotapi.BotAPI, chatID int64, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{api: api, chatID: chatID, logger: logger}
}

// Send delivers the text, in several messages when it exceeds the
// Telegram limit. A failed chunk is logged and skipped so the remaining
// chunks still go out; the first error is returned.
func (s *Sender) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var firstErr error
	for _, chunk := range SplitMessage(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(s.chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := s.api.Send(msg); err != nil {
			s.logger.Error("failed to send message", "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to send message: %w", err)
			}
		}
	}
	return firstErr
}

// SplitMessage splits text into chunks of at most maxLength characters,
// preferring blank-line boundaries so one album's lines stay together.
// An individual block longer than the limit is hard-truncated.
func SplitMessage(text string, maxLength int) []string {
	if len(text) <= maxLength {
		return []string{text}
	}

	var chunks []string
	current := ""

	flush := func() {
		if current != "" {
			chunks = append(chunks, strings.TrimRight(current, "\n"))
			current = ""
		}
	}

	for _, block := range strings.Split(text, "\n\n") {
		// A single block over the limit cannot be kept whole.
		if len(block) > maxLength {
			flush()
			chunks = append(chunks, block[:maxLength])
			continue
		}
		if len(current)+len(block) > maxLength {
			flush()
		}
		current += block + "\n\n"
	}
	flush()

	return chunks
}

// FormatAlbumList renders albums as an HTML message with a bold header.
// Returns "" for an empty list.
func FormatAlbumList(albums []domain.Album, intro string) string {
	if len(albums) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n", html.EscapeString(intro))

	for _, album := range albums {
		name := album.Name
		if name == "" {
			name = "Unknown Album"
		}
		artist := album.Artist
		if artist == "" {
			artist = "Unknown Artist"
		}

		fmt.Fprintf(&b, "💿 <b>%s</b>\n", html.EscapeString(name))
		fmt.Fprintf(&b, "👤 %s\n", html.EscapeString(artist))
		if date := albumDate(album); date != "" {
			fmt.Fprintf(&b, "📅 %s\n", html.EscapeString(date))
		}
		if genres := album.GenreList(); len(genres) > 0 {
			fmt.Fprintf(&b, "🏷 %s\n", html.EscapeString(strings.Join(genres, ", ")))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// albumDate prefers the full release date and falls back to the year.
func albumDate(album domain.Album) string {
	if display := album.ReleaseDate.Display(); display != "" {
		return display
	}
	if album.Year > 0 {
		return fmt.Sprintf("%d", album.Year)
	}
	return ""
}
