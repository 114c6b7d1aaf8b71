package subsonic

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aorestr/alpargatify/internal/domain"
)

const (
	apiVersion     = "1.16.1"
	clientName     = "alpargatify"
	defaultTimeout = 30 * time.Second
	listOrder      = "alphabeticalByArtist"
)

const saltChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// Config holds the connection settings for one Subsonic-compatible server.
type Config struct {
	URL      string
	Username string
	Password string

	// MusicFolder optionally scopes album listings to the named folder.
	MusicFolder string

	// Timeout bounds every request, detail fetches included, so a hung
	// server cannot pin an enrichment worker forever.
	Timeout time.Duration
}

// Client talks to a Navidrome/Subsonic server. It is safe for concurrent
// use; enrichment workers share one instance.
type Client struct {
	baseURL     string
	username    string
	password    string
	musicFolder string
	httpClient  *http.Client
	logger      *slog.Logger

	folderMu sync.Mutex
	folderID string // Resolved lazily from MusicFolder, "" when unscoped
}

// NewClient creates a new Subsonic API client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		username:    cfg.Username,
		password:    cfg.Password,
		musicFolder: cfg.MusicFolder,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// authParams generates the per-request Subsonic token auth parameters:
// a random salt and md5(password+salt).
func (c *Client) authParams() url.Values {
	salt := make([]byte, 6)
	for i := range salt {
		salt[i] = saltChars[rand.Intn(len(saltChars))]
	}
	sum := md5.Sum([]byte(c.password + string(salt)))

	params := url.Values{}
	params.Set("u", c.username)
	params.Set("t", hex.EncodeToString(sum[:]))
	params.Set("s", string(salt))
	params.Set("v", apiVersion)
	params.Set("c", clientName)
	params.Set("f", "json")
	return params
}

// request performs an authenticated GET against /rest/{endpoint} and
// unwraps the subsonic-response envelope. A "failed" status becomes a
// *domain.APIError so callers can tell logical failures from transport
// ones.
func (c *Client) request(ctx context.Context, endpoint string, params url.Values) (*subsonicResponse, error) {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}

	resp := env.Response
	if resp.Status == "failed" {
		apiErr := &domain.APIError{}
		if resp.Error != nil {
			apiErr.Code = resp.Error.Code
			apiErr.Message = resp.Error.Message
		}
		c.logger.Error("subsonic API error", "endpoint", endpoint, "code", apiErr.Code, "message", apiErr.Message)
		if apiErr.Code == 40 {
			return nil, fmt.Errorf("%w: %s", domain.ErrAuthFailed, apiErr.Message)
		}
		return nil, apiErr
	}

	return &resp, nil
}

// get performs the raw HTTP request and returns the body bytes.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	full := c.authParams()
	for key, values := range params {
		for _, v := range values {
			full.Add(key, v)
		}
	}

	reqURL := fmt.Sprintf("%s/rest/%s?%s", c.baseURL, endpoint, full.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug("subsonic request", "endpoint", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("subsonic request failed", "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("subsonic request error", "endpoint", endpoint, "status", resp.StatusCode)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return body, nil
}

// ListAlbums returns one page of the lightweight album listing, ordered
// alphabetically by artist. An empty slice means the listing is
// exhausted. Implements domain.ListingSource.
func (c *Client) ListAlbums(ctx context.Context, offset, size int) ([]domain.Album, error) {
	params := url.Values{}
	params.Set("type", listOrder)
	params.Set("size", strconv.Itoa(size))
	params.Set("offset", strconv.Itoa(offset))
	if folderID := c.resolveMusicFolderID(ctx); folderID != "" {
		params.Set("musicFolderId", folderID)
	}

	resp, err := c.request(ctx, "getAlbumList", params)
	if err != nil {
		return nil, err
	}
	if resp.AlbumList == nil {
		return nil, nil
	}
	return mapAlbums(resp.AlbumList.Album), nil
}

// GetAlbum returns the enriched detail record for one album, including
// the full release date and genre list. Implements domain.DetailSource.
func (c *Client) GetAlbum(ctx context.Context, id string) (*domain.Album, error) {
	params := url.Values{}
	params.Set("id", id)

	resp, err := c.request(ctx, "getAlbum", params)
	if err != nil {
		return nil, err
	}
	if resp.Album == nil {
		return nil, domain.ErrAlbumNotFound
	}
	album := mapAlbum(*resp.Album)
	return &album, nil
}

// ScanStatus returns the server's current media scan state.
func (c *Client) ScanStatus(ctx context.Context) (*domain.ScanStatus, error) {
	resp, err := c.request(ctx, "getScanStatus", nil)
	if err != nil {
		return nil, err
	}
	if resp.ScanStatus == nil {
		return nil, fmt.Errorf("getScanStatus: empty response")
	}
	return mapScanStatus(resp.ScanStatus), nil
}

// NowPlaying returns the tracks currently playing on the server.
func (c *Client) NowPlaying(ctx context.Context) ([]domain.NowPlayingEntry, error) {
	resp, err := c.request(ctx, "getNowPlaying", nil)
	if err != nil {
		return nil, err
	}
	if resp.NowPlaying == nil {
		return nil, nil
	}
	return mapNowPlaying(resp.NowPlaying), nil
}

// CoverArt returns the raw cover image bytes for the given art id,
// scaled to the requested size when size > 0.
func (c *Client) CoverArt(ctx context.Context, id string, size int) ([]byte, error) {
	params := url.Values{}
	params.Set("id", id)
	if size > 0 {
		params.Set("size", strconv.Itoa(size))
	}

	body, err := c.get(ctx, "getCoverArt", params)
	if err != nil {
		return nil, err
	}
	// An error envelope comes back as JSON instead of image bytes.
	if len(body) > 0 && body[0] == '{' {
		return nil, domain.ErrAlbumNotFound
	}
	return body, nil
}

// resolveMusicFolderID maps the configured folder name to its server id,
// caching the answer. Listing proceeds unscoped when the folder cannot
// be resolved.
func (c *Client) resolveMusicFolderID(ctx context.Context) string {
	if c.musicFolder == "" {
		return ""
	}

	c.folderMu.Lock()
	defer c.folderMu.Unlock()
	if c.folderID != "" {
		return c.folderID
	}

	resp, err := c.request(ctx, "getMusicFolders", nil)
	if err != nil {
		c.logger.Warn("failed to list music folders", "error", err)
		return ""
	}
	if resp.MusicFolders == nil {
		return ""
	}

	for _, folder := range resp.MusicFolders.MusicFolder {
		if folder.Name == c.musicFolder {
			c.folderID = folder.ID.String()
			c.logger.Debug("resolved music folder", "name", folder.Name, "id", c.folderID)
			return c.folderID
		}
	}

	c.logger.Warn("configured music folder not found on server", "name", c.musicFolder)
	return ""
}
