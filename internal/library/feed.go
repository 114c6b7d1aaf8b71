package library

import (
	"math/rand"
	"sort"
	"time"

	"github.com/aorestr/alpargatify/internal/domain"
)

// Feed functions are pure post-filters over a synced album collection;
// they never touch the network or the cache file.

// RecentlyAdded returns the albums added to the server after the cutoff,
// newest first.
func RecentlyAdded(albums []domain.Album, cutoff time.Time) []domain.Album {
	var recent []domain.Album
	for _, album := range albums {
		if !album.CreatedAt.IsZero() && album.CreatedAt.After(cutoff) {
			recent = append(recent, album)
		}
	}
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	return recent
}

// Anniversaries returns the albums released on the given calendar day,
// whatever the year. Albums without a resolvable release date never
// match.
func Anniversaries(albums []domain.Album, month time.Month, day int) []domain.Album {
	var matches []domain.Album
	for _, album := range albums {
		if album.ReleaseDate.Matches(int(month), day) {
			matches = append(matches, album)
		}
	}
	return matches
}

// RandomAlbum picks one album uniformly at random. ok is false when the
// collection is empty.
func RandomAlbum(albums []domain.Album) (domain.Album, bool) {
	if len(albums) == 0 {
		return domain.Album{}, false
	}
	return albums[rand.Intn(len(albums))], true
}

// Stats derives aggregate library counts from the synced collection.
func Stats(albums []domain.Album) domain.LibraryStats {
	artists := make(map[string]struct{})
	genres := make(map[string]struct{})
	songs := 0

	for _, album := range albums {
		if album.Artist != "" {
			artists[album.Artist] = struct{}{}
		}
		for _, genre := range album.GenreList() {
			genres[genre] = struct{}{}
		}
		songs += album.SongCount
	}

	return domain.LibraryStats{
		Albums:  len(albums),
		Artists: len(artists),
		Genres:  len(genres),
		Songs:   songs,
	}
}
