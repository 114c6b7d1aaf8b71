package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aorestr/alpargatify/internal/domain"
	"github.com/aorestr/alpargatify/internal/library"
)

const (
	feedRecent      = "recent"
	feedAnniversary = "anniversary"
)

// Digest runs the daily notification cycle: refresh the collection,
// derive the recently-added and anniversary feeds, drop anything already
// announced, and deliver the rest.
type Digest struct {
	provider     AlbumProvider
	ledger       domain.Ledger
	notifier     domain.Notifier
	logger       *slog.Logger
	recentWindow time.Duration
	now          domain.Clock
}

// NewDigest wires a digest job. clock may be nil to use wall time.
func NewDigest(provider AlbumProvider, ledger domain.Ledger, notifier domain.Notifier, recentWindow time.Duration, clock domain.Clock, logger *slog.Logger) *Digest {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Digest{
		provider:     provider,
		ledger:       ledger,
		notifier:     notifier,
		logger:       logger,
		recentWindow: recentWindow,
		now:          clock,
	}
}

// Run executes one digest cycle. Feed delivery failures do not abort the
// remaining feeds; the first error is returned.
func (d *Digest) Run(ctx context.Context) error {
	albums, err := d.provider.Sync(ctx, false)
	if err != nil {
		if len(albums) == 0 {
			return fmt.Errorf("digest sync: %w", err)
		}
		d.logger.Warn("digest running on stale collection", "error", err)
	}

	now := d.now()

	var firstErr error
	recent := library.RecentlyAdded(albums, now.Add(-d.recentWindow))
	if err := d.announce(ctx, feedRecent, "Freshly added to the collection", recent); err != nil {
		firstErr = err
	}

	anniversaries := library.Anniversaries(albums, now.Month(), now.Day())
	// Anniversaries recur yearly, so the dedup key carries the year.
	yearFeed := fmt.Sprintf("%s:%d", feedAnniversary, now.Year())
	if err := d.announce(ctx, yearFeed, "Released on this day", anniversaries); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// announce sends the albums from feed that the ledger has not seen yet
// and records them as announced once delivery succeeds.
func (d *Digest) announce(ctx context.Context, feed, intro string, albums []domain.Album) error {
	fresh := albums[:0:0]
	for _, album := range albums {
		if !d.ledger.Announced(feed, album.ID) {
			fresh = append(fresh, album)
		}
	}

	if len(fresh) == 0 {
		d.logger.Debug("nothing new to announce", "feed", feed)
		return nil
	}

	if err := d.notifier.Send(ctx, FormatAlbumList(fresh, intro)); err != nil {
		return fmt.Errorf("announce %s: %w", feed, err)
	}

	ids := make([]string, 0, len(fresh))
	for _, album := range fresh {
		ids = append(ids, album.ID)
	}
	if err := d.ledger.MarkAnnounced(feed, ids); err != nil {
		return fmt.Errorf("record %s announcements: %w", feed, err)
	}

	d.logger.Info("announced albums", "feed", feed, "count", len(fresh))
	return nil
}
