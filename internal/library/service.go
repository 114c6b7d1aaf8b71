package library

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aorestr/alpargatify/internal/domain"
)

const (
	defaultPageSize  = 500
	defaultWorkers   = 10
	defaultExpiry    = 7 * 24 * time.Hour
	progressLogEvery = 2000
)

// Options tunes the sync engine. Zero values fall back to defaults.
type Options struct {
	PageSize int
	Workers  int
	Expiry   time.Duration
	Clock    domain.Clock
}

// Service is the sync orchestrator: it reconciles the remote album
// listing against the cached snapshot, enriches what is new or stale,
// and persists the merged result. Concurrent Sync calls serialize, so
// at most one cycle owns the snapshot at a time.
type Service struct {
	listing  domain.ListingSource
	detail   domain.DetailSource
	store    domain.SnapshotStore
	logger   *slog.Logger
	pageSize int
	workers  int
	expiry   time.Duration
	now      domain.Clock

	syncMu sync.Mutex
}

// NewService creates a new sync service.
func NewService(listing domain.ListingSource, detail domain.DetailSource, store domain.SnapshotStore, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Expiry <= 0 {
		opts.Expiry = defaultExpiry
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		listing:  listing,
		detail:   detail,
		store:    store,
		logger:   logger,
		pageSize: opts.PageSize,
		workers:  opts.Workers,
		expiry:   opts.Expiry,
		now:      opts.Clock,
	}
}

// Sync runs one full cycle and returns the merged album collection.
//
// When the listing fails outright (first page), the previously persisted
// snapshot is returned unchanged together with the error, and nothing is
// written. When persisting the merged result fails, the result is still
// returned alongside the error; only future-cycle freshness is affected.
func (s *Service) Sync(ctx context.Context, force bool) ([]domain.Album, error) {
	// The scheduled digest and interactive commands share one Service;
	// overlapping cycles would race on the snapshot file.
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	cached := s.store.Load()

	listed, listErr := s.listAll(ctx)
	if listErr != nil && len(listed) == 0 {
		s.logger.Error("album listing failed, keeping previous snapshot", "error", listErr)
		return sortedAlbums(cached), fmt.Errorf("%w: %v", domain.ErrListingFailed, listErr)
	}
	if listErr != nil {
		// A later page failed; proceed with the truncated listing. This
		// can misclassify unlisted albums as deleted during a partial
		// outage, which the next clean cycle repairs.
		s.logger.Warn("album listing truncated", "listed", len(listed), "error", listErr)
	}

	currentIDs := make(map[string]struct{}, len(listed))
	listedByID := make(map[string]domain.Album, len(listed))
	for _, album := range listed {
		if album.ID == "" {
			continue
		}
		currentIDs[album.ID] = struct{}{}
		listedByID[album.ID] = album
	}

	diff := Reconcile(currentIDs, cached, s.now().UTC(), s.expiry, force)
	toFetch := diff.ToFetch(currentIDs)

	s.logger.Info("sync status",
		"listed", len(currentIDs),
		"cached", len(cached),
		"new", len(diff.New),
		"deleted", len(diff.Deleted),
		"expired", len(diff.Expired),
		"fetching", len(toFetch),
		"force", force,
	)

	enriched := s.enrich(ctx, toFetch, listedByID)

	// Merge: cached albums that are neither deleted nor re-fetched, plus
	// everything the enrichment pass produced. Each surviving id appears
	// exactly once.
	final := make([]domain.Album, 0, len(cached)+len(enriched))
	for id, album := range cached {
		if _, gone := diff.Deleted[id]; gone {
			continue
		}
		if _, refetched := toFetch[id]; refetched {
			continue
		}
		final = append(final, album)
	}
	final = append(final, enriched...)

	sort.Slice(final, func(i, j int) bool {
		if final[i].Artist != final[j].Artist {
			return final[i].Artist < final[j].Artist
		}
		return final[i].Name < final[j].Name
	})

	if len(final) == 0 {
		s.logger.Warn("merged library is empty, not persisting")
		return final, nil
	}

	if err := s.store.Save(final); err != nil {
		s.logger.Error("failed to persist cache", "error", err)
		return final, fmt.Errorf("failed to persist cache: %w", err)
	}

	s.logger.Info("cache updated", "albums", len(final))
	return final, nil
}

// listAll walks the paged album listing until an empty page. A page
// failure terminates the walk and is returned alongside whatever was
// accumulated, so the caller can tell a clean end from a truncation.
func (s *Service) listAll(ctx context.Context) ([]domain.Album, error) {
	var all []domain.Album
	offset := 0

	for {
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		default:
		}

		page, err := s.listing.ListAlbums(ctx, offset, s.pageSize)
		if err != nil {
			return all, err
		}
		if len(page) == 0 {
			return all, nil
		}

		all = append(all, page...)
		offset += s.pageSize

		if offset%progressLogEvery == 0 {
			s.logger.Debug("listing progress", "albums", len(all))
		}
	}
}

func sortedAlbums(snapshot map[string]domain.Album) []domain.Album {
	albums := make([]domain.Album, 0, len(snapshot))
	for _, album := range snapshot {
		albums = append(albums, album)
	}
	sort.Slice(albums, func(i, j int) bool {
		if albums[i].Artist != albums[j].Artist {
			return albums[i].Artist < albums[j].Artist
		}
		return albums[i].Name < albums[j].Name
	})
	return albums
}
