package library

import (
	"time"

	"github.com/aorestr/alpargatify/internal/domain"
)

// Diff is the per-cycle classification of album ids produced by
// comparing the remote listing against the cached snapshot.
type Diff struct {
	New     map[string]struct{} // Listed but not cached
	Deleted map[string]struct{} // Cached but no longer listed
	Expired map[string]struct{} // Cached, still listed, but stale
	Force   bool
}

// ToFetch returns the ids whose detail records must be (re)fetched this
// cycle. Under force that is every listed id, regardless of cache state.
func (d Diff) ToFetch(currentIDs map[string]struct{}) map[string]struct{} {
	if d.Force {
		return currentIDs
	}
	ids := make(map[string]struct{}, len(d.New)+len(d.Expired))
	for id := range d.New {
		ids[id] = struct{}{}
	}
	for id := range d.Expired {
		ids[id] = struct{}{}
	}
	return ids
}

// Reconcile classifies ids as new, deleted, or expired. It is a pure
// function of its inputs.
//
// A cached album still present in the listing is expired when it was
// never enriched or its last enrichment is at least expiry old; unknown
// freshness is never treated as fresh. When force is set the expiry pass
// is bypassed entirely, not merely defaulted.
func Reconcile(currentIDs map[string]struct{}, cached map[string]domain.Album, now time.Time, expiry time.Duration, force bool) Diff {
	diff := Diff{
		New:     make(map[string]struct{}),
		Deleted: make(map[string]struct{}),
		Expired: make(map[string]struct{}),
		Force:   force,
	}

	for id := range currentIDs {
		if _, ok := cached[id]; !ok {
			diff.New[id] = struct{}{}
		}
	}

	for id := range cached {
		if _, ok := currentIDs[id]; !ok {
			diff.Deleted[id] = struct{}{}
		}
	}

	if force {
		return diff
	}

	for id, album := range cached {
		if _, gone := diff.Deleted[id]; gone {
			continue
		}
		if album.FetchedAt.IsZero() || now.Sub(album.FetchedAt) >= expiry {
			diff.Expired[id] = struct{}{}
		}
	}

	return diff
}
