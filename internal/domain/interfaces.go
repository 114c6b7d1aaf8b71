package domain

import (
	"context"
	"time"
)

// ListingSource provides the lightweight album listing, one page at a
// time. Pages are requested sequentially until an empty page; a page
// failure truncates the listing rather than aborting the caller.
type ListingSource interface {
	ListAlbums(ctx context.Context, offset, size int) ([]Album, error)
}

// DetailSource provides full enriched metadata for a single album.
// Individual fetches may fail independently.
type DetailSource interface {
	GetAlbum(ctx context.Context, id string) (*Album, error)
}

// SnapshotStore loads and persists the enriched album set as a whole.
// Load degrades to an empty snapshot when the backing file is absent or
// unreadable; Save replaces the previous snapshot atomically.
type SnapshotStore interface {
	Load() map[string]Album
	Save(albums []Album) error
}

// Ledger remembers which albums have already been announced on a feed,
// so scheduled notifications never repeat themselves.
type Ledger interface {
	Announced(feed, id string) bool
	MarkAnnounced(feed string, ids []string) error
	Close() error
}

// Notifier delivers a formatted message to the configured channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// ServerStatus exposes the auxiliary server endpoints used by the
// interactive commands.
type ServerStatus interface {
	ScanStatus(ctx context.Context) (*ScanStatus, error)
	NowPlaying(ctx context.Context) ([]NowPlayingEntry, error)
	CoverArt(ctx context.Context, id string, size int) ([]byte, error)
}

// Clock returns the current time; injected so expiry logic is testable.
type Clock func() time.Time
