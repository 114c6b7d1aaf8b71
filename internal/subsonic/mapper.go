package subsonic

import (
	"encoding/json"
	"time"

	"github.com/aorestr/alpargatify/internal/domain"
)

// mapAlbum converts an albumDTO (minimal or enriched) to a domain Album.
func mapAlbum(dto albumDTO) domain.Album {
	album := domain.Album{
		ID:        dto.ID,
		Name:      dto.Name,
		Artist:    dto.Artist,
		ArtistID:  dto.ArtistID,
		CoverArt:  dto.CoverArt,
		Year:      dto.Year,
		Genre:     dto.Genre,
		SongCount: dto.SongCount,
		Duration:  dto.Duration,
		CreatedAt: parseServerTime(dto.Created),
	}

	for _, g := range dto.Genres {
		if g.Name != "" {
			album.Genres = append(album.Genres, g.Name)
		}
	}

	album.ReleaseDate = parseReleaseDate(dto.ReleaseDate)
	if album.ReleaseDate.IsZero() {
		album.ReleaseDate = parseReleaseDate(dto.OriginalReleaseDate)
	}

	return album
}

func mapAlbums(dtos []albumDTO) []domain.Album {
	albums := make([]domain.Album, 0, len(dtos))
	for _, dto := range dtos {
		albums = append(albums, mapAlbum(dto))
	}
	return albums
}

// parseReleaseDate resolves the server's loosely typed release date into
// the tagged domain variant: structured record, raw text, or absent.
func parseReleaseDate(raw json.RawMessage) domain.ReleaseDate {
	if len(raw) == 0 {
		return domain.ReleaseDate{}
	}

	var structured releaseDateDTO
	if err := json.Unmarshal(raw, &structured); err == nil {
		if structured.Year != 0 || structured.Month != 0 || structured.Day != 0 {
			return domain.ReleaseDate{
				Year:  structured.Year,
				Month: structured.Month,
				Day:   structured.Day,
			}
		}
		return domain.ReleaseDate{}
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil && text != "" {
		return domain.ReleaseDate{Text: text}
	}

	return domain.ReleaseDate{}
}

// parseServerTime parses the RFC 3339 timestamps Subsonic servers emit,
// tolerating the fractional-seconds and bare variants seen in the wild.
func parseServerTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func mapScanStatus(dto *scanStatusDTO) *domain.ScanStatus {
	return &domain.ScanStatus{
		Scanning: dto.Scanning,
		Count:    dto.Count,
		LastScan: parseServerTime(dto.LastScan),
	}
}

func mapNowPlaying(dto *nowPlayingDTO) []domain.NowPlayingEntry {
	entries := make([]domain.NowPlayingEntry, 0, len(dto.Entry))
	for _, e := range dto.Entry {
		entries = append(entries, domain.NowPlayingEntry{
			Username:   e.Username,
			Title:      e.Title,
			Artist:     e.Artist,
			Album:      e.Album,
			AlbumID:    e.AlbumID,
			MinutesAgo: e.MinutesAgo,
		})
	}
	return entries
}
