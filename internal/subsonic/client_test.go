package subsonic

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aorestr/alpargatify/internal/domain"
	"github.com/aorestr/alpargatify/internal/log"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		URL:      server.URL,
		Username: "admin",
		Password: "hunter2",
	}, log.NullLogger())
}

func okEnvelope(body string) string {
	return fmt.Sprintf(`{"subsonic-response":{"status":"ok","version":"1.16.1"%s}}`, body)
}

func TestAuthParams(t *testing.T) {
	var query url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		fmt.Fprint(w, okEnvelope(`,"albumList":{"album":[]}`))
	})

	_, err := client.ListAlbums(context.Background(), 0, 10)
	require.NoError(t, err)

	assert.Equal(t, "admin", query.Get("u"))
	assert.Equal(t, "1.16.1", query.Get("v"))
	assert.Equal(t, "alpargatify", query.Get("c"))
	assert.Equal(t, "json", query.Get("f"))

	salt := query.Get("s")
	require.Len(t, salt, 6)
	sum := md5.Sum([]byte("hunter2" + salt))
	assert.Equal(t, hex.EncodeToString(sum[:]), query.Get("t"))
}

func TestListAlbums(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/getAlbumList", r.URL.Path)
		assert.Equal(t, "alphabeticalByArtist", r.URL.Query().Get("type"))
		assert.Equal(t, "500", r.URL.Query().Get("size"))
		assert.Equal(t, "1000", r.URL.Query().Get("offset"))
		fmt.Fprint(w, okEnvelope(`,"albumList":{"album":[
			{"id":"al-1","name":"Spirit of Eden","artist":"Talk Talk","year":1988},
			{"id":"al-2","name":"Laughing Stock","artist":"Talk Talk","year":1991}
		]}`))
	})

	albums, err := client.ListAlbums(context.Background(), 1000, 500)
	require.NoError(t, err)
	require.Len(t, albums, 2)
	assert.Equal(t, "al-1", albums[0].ID)
	assert.Equal(t, "Talk Talk", albums[0].Artist)
	assert.Equal(t, 1988, albums[0].Year)
}

func TestListAlbumsEmptyPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(`,"albumList":{"album":[]}`))
	})

	albums, err := client.ListAlbums(context.Background(), 5000, 500)
	require.NoError(t, err)
	assert.Empty(t, albums)
}

func TestGetAlbumDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/getAlbum", r.URL.Path)
		assert.Equal(t, "al-9", r.URL.Query().Get("id"))
		fmt.Fprint(w, okEnvelope(`,"album":{
			"id":"al-9","name":"Lonerism","artist":"Tame Impala","year":2012,
			"songCount":12,"duration":3120,
			"created":"2026-08-01T09:15:00Z",
			"genres":[{"name":"Psychedelic Rock"},{"name":"Neo-Psychedelia"}],
			"releaseDate":{"year":2012,"month":10,"day":5}
		}`))
	})

	album, err := client.GetAlbum(context.Background(), "al-9")
	require.NoError(t, err)
	assert.Equal(t, "Lonerism", album.Name)
	assert.Equal(t, []string{"Psychedelic Rock", "Neo-Psychedelia"}, album.Genres)
	assert.Equal(t, domain.ReleaseDate{Year: 2012, Month: 10, Day: 5}, album.ReleaseDate)
	assert.Equal(t, 2026, album.CreatedAt.Year())
}

func TestGetAlbumTextualReleaseDate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(`,"album":{"id":"al-3","name":"Pygmalion","artist":"Slowdive","releaseDate":"1995-02-06"}`))
	})

	album, err := client.GetAlbum(context.Background(), "al-3")
	require.NoError(t, err)
	assert.Equal(t, "1995-02-06", album.ReleaseDate.Text)
	assert.False(t, album.ReleaseDate.Structured())
}

func TestGetAlbumNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(``))
	})

	_, err := client.GetAlbum(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrAlbumNotFound)
}

func TestAPIErrorEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"subsonic-response":{"status":"failed","version":"1.16.1","error":{"code":70,"message":"not found"}}}`)
	})

	_, err := client.ListAlbums(context.Background(), 0, 10)
	require.Error(t, err)

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 70, apiErr.Code)
}

func TestWrongCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"subsonic-response":{"status":"failed","version":"1.16.1","error":{"code":40,"message":"Wrong username or password"}}}`)
	})

	_, err := client.ListAlbums(context.Background(), 0, 10)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}

func TestServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // Nothing listening anymore.

	client := NewClient(Config{URL: server.URL, Username: "u", Password: "p"}, log.NullLogger())
	_, err := client.ListAlbums(context.Background(), 0, 10)
	assert.ErrorIs(t, err, domain.ErrServerUnreachable)
}

func TestMusicFolderScoping(t *testing.T) {
	var folderCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/getMusicFolders":
			folderCalls.Add(1)
			fmt.Fprint(w, okEnvelope(`,"musicFolders":{"musicFolder":[
				{"id":1,"name":"Music"},{"id":2,"name":"Audiobooks"}
			]}`))
		case "/rest/getAlbumList":
			assert.Equal(t, "1", r.URL.Query().Get("musicFolderId"))
			fmt.Fprint(w, okEnvelope(`,"albumList":{"album":[]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		URL:         server.URL,
		Username:    "u",
		Password:    "p",
		MusicFolder: "Music",
	}, log.NullLogger())

	_, err := client.ListAlbums(context.Background(), 0, 10)
	require.NoError(t, err)
	_, err = client.ListAlbums(context.Background(), 10, 10)
	require.NoError(t, err)

	// The folder id is resolved once and cached.
	assert.Equal(t, int32(1), folderCalls.Load())
}

func TestCoverArt(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0} // JPEG magic
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/getCoverArt", r.URL.Path)
		assert.Equal(t, "300", r.URL.Query().Get("size"))
		w.Write(raw)
	})

	art, err := client.CoverArt(context.Background(), "cov-1", 300)
	require.NoError(t, err)
	assert.Equal(t, raw, art)
}

func TestCoverArtErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"subsonic-response":{"status":"failed","error":{"code":70,"message":"not found"}}}`)
	})

	_, err := client.CoverArt(context.Background(), "nope", 0)
	assert.ErrorIs(t, err, domain.ErrAlbumNotFound)
}

func TestScanStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(`,"scanStatus":{"scanning":false,"count":48212,"lastScan":"2026-08-30T03:00:00Z"}`))
	})

	status, err := client.ScanStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Scanning)
	assert.Equal(t, int64(48212), status.Count)
	assert.Equal(t, 2026, status.LastScan.Year())
}

func TestNowPlaying(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(`,"nowPlaying":{"entry":[
			{"username":"ana","title":"Avril 14th","artist":"Aphex Twin","album":"Drukqs","minutesAgo":2}
		]}`))
	})

	entries, err := client.NowPlaying(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ana", entries[0].Username)
	assert.Equal(t, 2, entries[0].MinutesAgo)
}
