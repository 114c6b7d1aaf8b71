package search

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sahilm "github.com/sahilm/fuzzy"

	"github.com/aorestr/alpargatify/internal/domain"
)

// albumIndex implements sahilm/fuzzy.Source for zero-allocation matching
// over "artist - name" strings.
type albumIndex struct {
	albums      []domain.Album
	lowerTitles []string // Pre-computed lowercase search strings
}

func (idx *albumIndex) String(i int) string { return idx.lowerTitles[i] }
func (idx *albumIndex) Len() int            { return len(idx.albums) }

// Service answers fuzzy album queries against the synced collection.
type Service struct {
	logger *slog.Logger

	mu    sync.RWMutex
	index *albumIndex
}

// NewService creates a new search service.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, index: &albumIndex{}}
}

// Index replaces the search index with the given collection. Called
// after every sync cycle.
func (s *Service) Index(albums []domain.Album) {
	idx := &albumIndex{
		albums:      albums,
		lowerTitles: make([]string, len(albums)),
	}
	for i, album := range albums {
		idx.lowerTitles[i] = strings.ToLower(album.Artist + " - " + album.Name)
	}

	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()

	s.logger.Debug("search index rebuilt", "albums", len(albums))
}

// Search returns up to limit albums matching the query, best first.
// Subsequence matching runs first; when it finds nothing, a slower
// rank-by-distance pass catches typos.
func (s *Service) Search(query string, limit int) []domain.Album {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()

	if idx.Len() == 0 {
		return nil
	}

	matches := sahilm.FindFrom(query, idx)
	if len(matches) == 0 {
		return s.rankFallback(query, idx, limit)
	}

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]domain.Album, 0, len(matches))
	for _, match := range matches {
		results = append(results, idx.albums[match.Index])
	}
	return results
}

// rankFallback matches by Levenshtein rank for queries the subsequence
// matcher rejects outright (transposed or mistyped words).
func (s *Service) rankFallback(query string, idx *albumIndex, limit int) []domain.Album {
	ranks := fuzzy.RankFindFold(query, idx.lowerTitles)
	if len(ranks) == 0 {
		return nil
	}

	sort.Slice(ranks, func(i, j int) bool {
		return ranks[i].Distance < ranks[j].Distance
	})

	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	results := make([]domain.Album, 0, len(ranks))
	for _, rank := range ranks {
		results = append(results, idx.albums[rank.OriginalIndex])
	}
	return results
}
