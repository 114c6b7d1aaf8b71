package library

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/aorestr/alpargatify/internal/domain"
)

// enrich fetches detail records for the given ids with a bounded worker
// pool. Every id yields at most one album: the enriched detail on
// success, a fallback built from the listing record when the detail
// fetch fails, or nothing when no fallback exists (the id will be
// reclassified next cycle). Failures never abort the pool; completion
// order is meaningless.
func (s *Service) enrich(ctx context.Context, ids map[string]struct{}, listed map[string]domain.Album) []domain.Album {
	if len(ids) == 0 {
		return nil
	}

	results := make(chan domain.Album, len(ids))

	g := &errgroup.Group{}
	g.SetLimit(s.workers)

	for id := range ids {
		id := id
		g.Go(func() error {
			album, err := s.detail.GetAlbum(ctx, id)
			if err == nil && album != nil && album.ID != "" {
				album.FetchedAt = s.now().UTC()
				results <- *album
				return nil
			}

			if ctx.Err() != nil {
				// An abandoned cycle must not stamp fallbacks fresh; the
				// id stays stale and the next cycle retries it.
				return nil
			}

			fallback, ok := listed[id]
			if !ok {
				// Disappeared from the API mid-cycle; next cycle will
				// classify it as deleted or new depending on server state.
				s.logger.Warn("enrichment failed, no fallback", "id", id, "error", err)
				return nil
			}

			s.logger.Warn("enrichment failed, keeping listing record", "id", id, "error", err)
			// Stamp the fallback too, so a transient detail failure does
			// not force a retry on every single cycle.
			fallback.FetchedAt = s.now().UTC()
			results <- fallback
			return nil
		})
	}

	// Workers always return nil; the group is used for its limit and wait.
	_ = g.Wait()
	close(results)

	albums := make([]domain.Album, 0, len(ids))
	for album := range results {
		albums = append(albums, album)
	}
	return albums
}
