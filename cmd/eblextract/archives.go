package main

import (
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"

	"github.com/jchantrell/eblextract/internal/binder"
	"github.com/jchantrell/eblextract/internal/game"
	"github.com/jchantrell/eblextract/internal/keys"
)

// openedArchive is one archive of the configured title, opened for reading.
type openedArchive struct {
	archive game.Archive
	reader  *binder.Reader
}

type archiveSeq = iter.Seq2[openedArchive, error]

// openArchives yields every archive of the configured title present under root.
// Missing archives are logged and skipped. Each reader is closed after it is yielded.
func openArchives(root string) (archiveSeq, error) {
	g, p, err := cfg.Title()
	if err != nil {
		return nil, err
	}
	format, err := g.Format()
	if err != nil {
		return nil, err
	}
	archives, err := game.Archives(g, p)
	if err != nil {
		return nil, err
	}
	set, err := keys.NewAssets(cfg.AssetsDir).For(g, p)
	if err != nil {
		return nil, err
	}

	return func(yield func(openedArchive, error) bool) {
		for _, a := range archives {
			headerPath := filepath.Join(root, a.Header)
			dataPath := filepath.Join(root, a.Data)
			if !keys.FileExists(headerPath) || !keys.FileExists(dataPath) {
				slog.Warn("Archive not found, skipping", "header", headerPath, "data", dataPath)
				continue
			}

			r, err := binder.Open(headerPath, dataPath, binder.OpenOptions{
				Format:      format,
				Keys:        set,
				StrictNames: cfg.StrictNames,
			})
			if err != nil {
				if !yield(openedArchive{archive: a}, fmt.Errorf("opening %s: %w", a.Name(), err)) {
					return
				}
				continue
			}

			more := yield(openedArchive{archive: a, reader: r}, nil)
			if err := r.Close(); err != nil {
				slog.Warn("Closing archive", "archive", a.Name(), "error", err)
			}
			if !more {
				return
			}
		}
	}, nil
}
