package domain

import (
	"fmt"
	"strings"
	"time"
)

// Album represents one album record from the music server, enriched with
// detail metadata when available. The cache file persists these as-is.
type Album struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Artist    string   `json:"artist"`
	ArtistID  string   `json:"artistId,omitempty"`
	CoverArt  string   `json:"coverArt,omitempty"`
	Year      int      `json:"year,omitempty"`
	Genre     string   `json:"genre,omitempty"`
	Genres    []string `json:"genres,omitempty"`
	SongCount int      `json:"songCount,omitempty"`
	Duration  int      `json:"duration,omitempty"` // Total length in seconds

	// CreatedAt is when the server added the album to the library.
	CreatedAt time.Time `json:"created,omitzero"`

	// ReleaseDate is when the album was originally released. Servers report
	// it in several shapes; the core carries it through unchanged.
	ReleaseDate ReleaseDate `json:"releaseDate,omitzero"`

	// FetchedAt is when detail enrichment last succeeded for this album,
	// in UTC. Zero means the record was never enriched.
	FetchedAt time.Time `json:"fetchedAt,omitzero"`
}

// DisplayTitle returns "Artist - Name" for log lines and messages.
func (a Album) DisplayTitle() string {
	return fmt.Sprintf("%s - %s", a.Artist, a.Name)
}

// GenreList returns the genre names, falling back to the single legacy
// genre field when the detail list is absent.
func (a Album) GenreList() []string {
	if len(a.Genres) > 0 {
		return a.Genres
	}
	if a.Genre != "" {
		return []string{a.Genre}
	}
	return nil
}

// ReleaseDate is the release date as reported by the server: either a
// structured year/month/day record, a free-form text (ISO-like or
// year-only), or absent. Resolution to calendar semantics happens at the
// feed layer; the sync core treats the value as opaque.
type ReleaseDate struct {
	Year  int    `json:"year,omitempty"`
	Month int    `json:"month,omitempty"`
	Day   int    `json:"day,omitempty"`
	Text  string `json:"text,omitempty"`
}

// IsZero reports whether no release date is known.
func (r ReleaseDate) IsZero() bool {
	return r.Year == 0 && r.Month == 0 && r.Day == 0 && r.Text == ""
}

// Structured reports whether the date carries explicit calendar fields.
func (r ReleaseDate) Structured() bool {
	return r.Year != 0 || r.Month != 0 || r.Day != 0
}

// Matches reports whether the release date falls on the given calendar
// day and month. Textual dates are matched by their ISO "YYYY-MM-DD"
// prefix; anything shorter or unparseable never matches.
func (r ReleaseDate) Matches(month, day int) bool {
	if r.Structured() {
		return r.Month == month && r.Day == day
	}
	if len(r.Text) >= 10 {
		if t, err := time.Parse("2006-01-02", r.Text[:10]); err == nil {
			return int(t.Month()) == month && t.Day() == day
		}
	}
	return false
}

// Display returns a human-readable rendering: "2006-03-14" for structured
// dates, the raw text otherwise, or "" when absent.
func (r ReleaseDate) Display() string {
	if r.Structured() {
		if r.Month == 0 || r.Day == 0 {
			return fmt.Sprintf("%d", r.Year)
		}
		return fmt.Sprintf("%04d-%02d-%02d", r.Year, r.Month, r.Day)
	}
	return strings.TrimSpace(r.Text)
}

// ScanStatus is the server's media scan state.
type ScanStatus struct {
	Scanning bool
	Count    int64 // Songs seen by the last scan
	LastScan time.Time
}

// NowPlayingEntry is one track currently being played on the server.
type NowPlayingEntry struct {
	Username   string
	Title      string
	Artist     string
	Album      string
	AlbumID    string
	MinutesAgo int
}

// LibraryStats are aggregate counts derived from the synced cache.
type LibraryStats struct {
	Albums  int
	Artists int
	Genres  int
	Songs   int
}
