package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aorestr/alpargatify/internal/domain"
	"github.com/aorestr/alpargatify/internal/library"
)

func newSearchCommand(appCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy search the cached collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			albums, err := cachedCollection(appCtx)
			if err != nil {
				return err
			}

			searcher, err := appCtx.searcher()
			if err != nil {
				return err
			}
			searcher.Index(albums)

			query := strings.Join(args, " ")
			results := searcher.Search(query, limit)
			if len(results) == 0 {
				fmt.Printf("No matches for %q\n", query)
				return nil
			}

			for _, album := range results {
				printAlbum(album)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")

	return cmd
}

func newRandomCommand(appCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "Pick a random album from the cached collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			albums, err := cachedCollection(appCtx)
			if err != nil {
				return err
			}

			album, ok := library.RandomAlbum(albums)
			if !ok {
				fmt.Println("The collection is empty; run `alpargatify sync` first.")
				return nil
			}

			printAlbum(album)
			return nil
		},
	}
}

func newStatsCommand(appCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cached collection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			albums, err := cachedCollection(appCtx)
			if err != nil {
				return err
			}

			stats := library.Stats(albums)
			fmt.Printf("Albums:  %d\n", stats.Albums)
			fmt.Printf("Artists: %d\n", stats.Artists)
			fmt.Printf("Genres:  %d\n", stats.Genres)
			fmt.Printf("Songs:   %d\n", stats.Songs)
			return nil
		},
	}
}

// cachedCollection reads the snapshot from disk without touching the
// server, so query commands work offline.
func cachedCollection(appCtx *commandContext) ([]domain.Album, error) {
	cfg, logger, err := appCtx.ensure()
	if err != nil {
		return nil, err
	}

	store := library.NewFileStore(cfg.Sync.CacheFile, logger)
	cached := store.Load()

	albums := make([]domain.Album, 0, len(cached))
	for _, album := range cached {
		albums = append(albums, album)
	}
	return albums, nil
}

func printAlbum(album domain.Album) {
	fmt.Printf("%s - %s", album.Artist, album.Name)
	if display := album.ReleaseDate.Display(); display != "" {
		fmt.Printf(" (%s)", display)
	} else if album.Year > 0 {
		fmt.Printf(" (%d)", album.Year)
	}
	if genres := album.GenreList(); len(genres) > 0 {
		fmt.Printf(" [%s]", strings.Join(genres, ", "))
	}
	fmt.Println()
}
