package subsonic

import "encoding/json"

// envelope is the outer wrapper every Subsonic endpoint responds with.
type envelope struct {
	Response subsonicResponse `json:"subsonic-response"`
}

// subsonicResponse is the union of the response bodies this client uses.
// Status is "ok" or "failed"; on failure Error is populated.
type subsonicResponse struct {
	Status       string           `json:"status"`
	Version      string           `json:"version"`
	Error        *errorDTO        `json:"error,omitempty"`
	AlbumList    *albumListDTO    `json:"albumList,omitempty"`
	Album        *albumDTO        `json:"album,omitempty"`
	ScanStatus   *scanStatusDTO   `json:"scanStatus,omitempty"`
	NowPlaying   *nowPlayingDTO   `json:"nowPlaying,omitempty"`
	MusicFolders *musicFoldersDTO `json:"musicFolders,omitempty"`
}

type errorDTO struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type albumListDTO struct {
	Album []albumDTO `json:"album"`
}

// albumDTO covers both the minimal getAlbumList shape and the enriched
// getAlbum shape. ReleaseDate is RawMessage because servers disagree on
// its type: Navidrome emits {year,month,day}, older Subsonic servers a
// plain string.
type albumDTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Artist    string     `json:"artist"`
	ArtistID  string     `json:"artistId"`
	CoverArt  string     `json:"coverArt"`
	Year      int        `json:"year"`
	Genre     string     `json:"genre"`
	SongCount int        `json:"songCount"`
	Duration  int        `json:"duration"`
	Created   string     `json:"created"`
	Genres    []genreDTO `json:"genres"`

	ReleaseDate         json.RawMessage `json:"releaseDate,omitempty"`
	OriginalReleaseDate json.RawMessage `json:"originalReleaseDate,omitempty"`
}

type genreDTO struct {
	Name string `json:"name"`
}

// releaseDateDTO is the structured Navidrome release date shape.
type releaseDateDTO struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type scanStatusDTO struct {
	Scanning bool   `json:"scanning"`
	Count    int64  `json:"count"`
	LastScan string `json:"lastScan"`
}

type nowPlayingDTO struct {
	Entry []nowPlayingEntryDTO `json:"entry"`
}

type nowPlayingEntryDTO struct {
	Username   string `json:"username"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	AlbumID    string `json:"albumId"`
	MinutesAgo int    `json:"minutesAgo"`
}

type musicFoldersDTO struct {
	MusicFolder []musicFolderDTO `json:"musicFolder"`
}

type musicFolderDTO struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}
