package library

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aorestr/alpargatify/internal/domain"
	"github.com/aorestr/alpargatify/internal/log"
)

type fakeListing struct {
	albums  []domain.Album
	failAt  int // 1-based page number that errors, 0 for never
	pageErr error

	mu    sync.Mutex
	calls int
}

func (f *fakeListing) ListAlbums(ctx context.Context, offset, size int) ([]domain.Album, error) {
	f.mu.Lock()
	f.calls++
	page := f.calls
	f.mu.Unlock()

	if f.failAt != 0 && page == f.failAt {
		return nil, f.pageErr
	}
	if offset >= len(f.albums) {
		return nil, nil
	}
	end := min(offset+size, len(f.albums))
	return f.albums[offset:end], nil
}

type fakeDetail struct {
	albums map[string]domain.Album
	fail   map[string]struct{}

	mu      sync.Mutex
	fetched []string
}

func (f *fakeDetail) GetAlbum(ctx context.Context, id string) (*domain.Album, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	f.mu.Unlock()

	if _, bad := f.fail[id]; bad {
		return nil, errors.New("detail unavailable")
	}
	album, ok := f.albums[id]
	if !ok {
		return nil, domain.ErrAlbumNotFound
	}
	return &album, nil
}

func (f *fakeDetail) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

type fakeStore struct {
	snapshot map[string]domain.Album
	saveErr  error
	saves    int
}

func (f *fakeStore) Load() map[string]domain.Album {
	out := make(map[string]domain.Album, len(f.snapshot))
	for id, album := range f.snapshot {
		out[id] = album
	}
	return out
}

func (f *fakeStore) Save(albums []domain.Album) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snapshot = make(map[string]domain.Album, len(albums))
	for _, album := range albums {
		f.snapshot[album.ID] = album
	}
	return nil
}

func listedAlbum(id, artist, name string) domain.Album {
	return domain.Album{ID: id, Artist: artist, Name: name}
}

func detailAlbum(id, artist, name, genre string) domain.Album {
	return domain.Album{ID: id, Artist: artist, Name: name, Genre: genre, SongCount: 10}
}

func newTestService(listing *fakeListing, detail *fakeDetail, store *fakeStore) *Service {
	return NewService(listing, detail, store, log.NullLogger(), Options{
		PageSize: 2,
		Workers:  4,
		Expiry:   7 * 24 * time.Hour,
		Clock:    func() time.Time { return testNow },
	})
}

func TestSyncColdStart(t *testing.T) {
	listing := &fakeListing{albums: []domain.Album{
		listedAlbum("1", "Ben Howard", "Noonday Dream"),
		listedAlbum("2", "Alela Diane", "Looking Glass"),
		listedAlbum("3", "Vetiver", "Up On High"),
	}}
	detail := &fakeDetail{albums: map[string]domain.Album{
		"1": detailAlbum("1", "Ben Howard", "Noonday Dream", "Folk"),
		"2": detailAlbum("2", "Alela Diane", "Looking Glass", "Folk"),
		"3": detailAlbum("3", "Vetiver", "Up On High", "Indie"),
	}}
	store := &fakeStore{}
	svc := newTestService(listing, detail, store)

	albums, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, albums, 3)

	// Sorted by artist, then name.
	assert.Equal(t, "Alela Diane", albums[0].Artist)
	assert.Equal(t, "Ben Howard", albums[1].Artist)
	assert.Equal(t, "Vetiver", albums[2].Artist)

	for _, album := range albums {
		assert.Equal(t, testNow, album.FetchedAt)
		assert.NotEmpty(t, album.Genre)
	}
	assert.Equal(t, 1, store.saves)
}

func TestSyncIdempotent(t *testing.T) {
	listing := &fakeListing{albums: []domain.Album{listedAlbum("1", "Low", "Things We Lost in the Fire")}}
	detail := &fakeDetail{albums: map[string]domain.Album{
		"1": detailAlbum("1", "Low", "Things We Lost in the Fire", "Slowcore"),
	}}
	store := &fakeStore{}
	svc := newTestService(listing, detail, store)

	_, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, detail.fetchCount())

	// An immediate second cycle finds everything fresh and fetches nothing.
	albums, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, albums, 1)
	assert.Equal(t, 1, detail.fetchCount())
}

func TestSyncDeletionRemovedFromCache(t *testing.T) {
	cached := detailAlbum("gone", "Wilco", "Cruel Country", "Americana")
	cached.FetchedAt = testNow.Add(-time.Hour)
	kept := detailAlbum("kept", "Feist", "Multitudes", "Indie")
	kept.FetchedAt = testNow.Add(-time.Hour)

	listing := &fakeListing{albums: []domain.Album{listedAlbum("kept", "Feist", "Multitudes")}}
	detail := &fakeDetail{}
	store := &fakeStore{snapshot: map[string]domain.Album{"gone": cached, "kept": kept}}
	svc := newTestService(listing, detail, store)

	albums, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "kept", albums[0].ID)
	assert.Zero(t, detail.fetchCount())
}

func TestSyncExpiredRefetched(t *testing.T) {
	stale := detailAlbum("1", "Beach House", "Once Twice Melody", "Dream Pop")
	stale.FetchedAt = testNow.Add(-8 * 24 * time.Hour)

	refreshed := stale
	refreshed.Genre = "Shoegaze"

	listing := &fakeListing{albums: []domain.Album{listedAlbum("1", "Beach House", "Once Twice Melody")}}
	detail := &fakeDetail{albums: map[string]domain.Album{"1": refreshed}}
	store := &fakeStore{snapshot: map[string]domain.Album{"1": stale}}
	svc := newTestService(listing, detail, store)

	albums, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "Shoegaze", albums[0].Genre)
	assert.Equal(t, testNow, albums[0].FetchedAt)
}

func TestSyncForceRefetchesEverythingOnce(t *testing.T) {
	fresh := detailAlbum("1", "Hania Rani", "Ghosts", "Modern Classical")
	fresh.FetchedAt = testNow.Add(-time.Minute)

	listing := &fakeListing{albums: []domain.Album{listedAlbum("1", "Hania Rani", "Ghosts")}}
	detail := &fakeDetail{albums: map[string]domain.Album{"1": fresh}}
	store := &fakeStore{snapshot: map[string]domain.Album{"1": fresh}}
	svc := newTestService(listing, detail, store)

	albums, err := svc.Sync(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.fetchCount())

	// The re-fetched record must not also survive as a kept cached copy.
	require.Len(t, albums, 1)
}

func TestSyncFallbackOnDetailFailure(t *testing.T) {
	listing := &fakeListing{albums: []domain.Album{listedAlbum("1", "Grouper", "Shade")}}
	detail := &fakeDetail{fail: map[string]struct{}{"1": {}}}
	store := &fakeStore{}
	svc := newTestService(listing, detail, store)

	albums, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, albums, 1)

	// The listing record survives, stamped so it is not retried every cycle.
	assert.Equal(t, "Shade", albums[0].Name)
	assert.Equal(t, testNow, albums[0].FetchedAt)
}

func TestSyncListingFailureKeepsSnapshot(t *testing.T) {
	cached := detailAlbum("1", "Big Thief", "Two Hands", "Folk Rock")
	cached.FetchedAt = testNow.Add(-time.Hour)

	listing := &fakeListing{failAt: 1, pageErr: errors.New("connection refused")}
	detail := &fakeDetail{}
	store := &fakeStore{snapshot: map[string]domain.Album{"1": cached}}
	svc := newTestService(listing, detail, store)

	albums, err := svc.Sync(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrListingFailed)

	// The previous snapshot is returned untouched and nothing is persisted.
	require.Len(t, albums, 1)
	assert.Equal(t, "1", albums[0].ID)
	assert.Zero(t, store.saves)
	assert.Zero(t, detail.fetchCount())
}

func TestSyncTruncatedListingProceeds(t *testing.T) {
	listing := &fakeListing{
		albums: []domain.Album{
			listedAlbum("1", "Adrianne Lenker", "Bright Future"),
			listedAlbum("2", "Adrianne Lenker", "Songs"),
			listedAlbum("3", "Adrianne Lenker", "Abysskiss"),
		},
		failAt:  2,
		pageErr: errors.New("timeout"),
	}
	detail := &fakeDetail{albums: map[string]domain.Album{
		"1": detailAlbum("1", "Adrianne Lenker", "Bright Future", "Folk"),
		"2": detailAlbum("2", "Adrianne Lenker", "Songs", "Folk"),
	}}
	store := &fakeStore{}
	svc := newTestService(listing, detail, store)

	albums, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)

	// Only the first page made it; the cycle still completes and persists.
	assert.Len(t, albums, 2)
	assert.Equal(t, 1, store.saves)
}

func TestSyncEmptyResultNotPersisted(t *testing.T) {
	listing := &fakeListing{}
	detail := &fakeDetail{}
	store := &fakeStore{}
	svc := newTestService(listing, detail, store)

	albums, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, albums)
	assert.Zero(t, store.saves)
}

func TestSyncPersistFailureStillReturnsResult(t *testing.T) {
	listing := &fakeListing{albums: []domain.Album{listedAlbum("1", "Khruangbin", "A La Sala")}}
	detail := &fakeDetail{albums: map[string]domain.Album{
		"1": detailAlbum("1", "Khruangbin", "A La Sala", "Funk"),
	}}
	store := &fakeStore{saveErr: errors.New("disk full")}
	svc := newTestService(listing, detail, store)

	albums, err := svc.Sync(context.Background(), false)
	require.Error(t, err)
	assert.Len(t, albums, 1)
}

// cancellingDetail cancels the cycle's context on its first fetch, so
// every detail outcome afterwards is a cancellation failure.
type cancellingDetail struct {
	cancel context.CancelFunc
}

func (c *cancellingDetail) GetAlbum(ctx context.Context, id string) (*domain.Album, error) {
	c.cancel()
	return nil, ctx.Err()
}

func TestSyncCancelledEnrichmentDropsFallbacks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listing := &fakeListing{albums: []domain.Album{listedAlbum("1", "Ichiko Aoba", "Windswept Adan")}}
	store := &fakeStore{}
	svc := newTestService(listing, &fakeDetail{}, store)
	svc.detail = &cancellingDetail{cancel: cancel}

	albums, err := svc.Sync(ctx, false)
	require.NoError(t, err)

	// A cancelled cycle neither stamps listing fallbacks fresh nor
	// persists the degraded result.
	assert.Empty(t, albums)
	assert.Zero(t, store.saves)
}

// gatedListing blocks its first call until released and records how many
// cycles are inside the listing stage at once.
type gatedListing struct {
	started   chan struct{}
	release   chan struct{}
	once      sync.Once
	active    atomic.Int32
	maxActive atomic.Int32
}

func (g *gatedListing) ListAlbums(ctx context.Context, offset, size int) ([]domain.Album, error) {
	n := g.active.Add(1)
	if n > g.maxActive.Load() {
		g.maxActive.Store(n)
	}
	defer g.active.Add(-1)

	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return nil, nil
}

func TestSyncSerializesConcurrentCycles(t *testing.T) {
	listing := &gatedListing{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	detail := &fakeDetail{}
	store := &fakeStore{}
	svc := newTestService(&fakeListing{}, detail, store)
	svc.listing = listing

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		svc.Sync(context.Background(), false)
	}()

	// First cycle is inside the listing stage; start a second one.
	<-listing.started
	go func() {
		defer wg.Done()
		svc.Sync(context.Background(), false)
	}()

	// Give the second cycle a chance to overlap before letting the first
	// one finish.
	time.Sleep(20 * time.Millisecond)
	close(listing.release)
	wg.Wait()

	assert.Equal(t, int32(1), listing.maxActive.Load())
}

func TestSyncExpiredWithFailingDetailKeepsFallback(t *testing.T) {
	// An expired id whose detail fetch fails falls back to the listing
	// record rather than vanishing from the cache.
	stale := detailAlbum("1", "Mount Eerie", "A Crow Looked at Me", "Folk")
	stale.FetchedAt = testNow.Add(-30 * 24 * time.Hour)

	listing := &fakeListing{albums: []domain.Album{listedAlbum("1", "Mount Eerie", "A Crow Looked at Me")}}
	detail := &fakeDetail{fail: map[string]struct{}{"1": {}}}
	store := &fakeStore{snapshot: map[string]domain.Album{"1": stale}}
	svc := newTestService(listing, detail, store)

	albums, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, testNow, albums[0].FetchedAt)
}
