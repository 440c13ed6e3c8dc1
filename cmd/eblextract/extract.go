package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/jchantrell/eblextract/internal/database"
	"github.com/jchantrell/eblextract/internal/export"
	"github.com/jchantrell/eblextract/internal/utils"
	"github.com/spf13/cobra"
)

var extractFile string

var extractCmd = &cobra.Command{
	Use:   "extract <game-root>",
	Short: "Extract every file from the title's archives",
	Long: `Extract opens each archive of the configured game and platform under
<game-root> and writes its files to the output directory.

With --file, only the named file is extracted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		start := time.Now()
		archives, err := openArchives(args[0])
		if err != nil {
			return err
		}

		if extractFile != "" {
			return extractOne(ctx, archives)
		}

		var manifest *database.Manifest
		if cfg.Manifest != "" {
			db, err := database.NewDatabase(database.DefaultDatabaseOptions(cfg.Manifest))
			if err != nil {
				return fmt.Errorf("opening manifest: %w", err)
			}
			defer db.Close()

			manifest = database.NewManifest(db, 1000)
			if err := manifest.CreateSchema(ctx); err != nil {
				return err
			}
		}

		exporter := export.NewExporter(export.Options{
			OutputDir:     cfg.Output,
			SkipUnknown:   cfg.SkipUnknownFiles,
			Lowercase:     cfg.LowercaseFileNames,
			DecompressDCX: cfg.DecompressDCX,
			Workers:       cfg.Workers,
		})

		var totalFiles int
		var totalBytes int64
		for opened, err := range archives {
			if err != nil {
				return err
			}
			name := opened.archive.Name()
			slog.Info("Unpacking archive", "archive", name, "files", opened.reader.Len())

			progress := utils.NewProgress(name, opened.reader.Len(), !noProgress)
			results, stats, err := exporter.Export(ctx, opened.reader, progress.Update)
			progress.Finish()
			if err != nil {
				return fmt.Errorf("unpacking %s: %w", name, err)
			}

			if manifest != nil {
				if err := manifest.Insert(ctx, name, results); err != nil {
					return fmt.Errorf("recording %s in manifest: %w", name, err)
				}
			}

			slog.Info("Unpacked archive",
				"archive", name,
				"files", utils.Number(int64(stats.Files)),
				"skipped", stats.Skipped,
				"size", utils.Bytes(stats.Bytes),
				"throughput", utils.ByteRate(stats.Bytes, stats.Duration),
				"duration", utils.Duration(stats.Duration))
			totalFiles += stats.Files
			totalBytes += stats.Bytes
		}

		elapsed := time.Since(start)
		slog.Info("Extraction complete",
			"output", cfg.Output,
			"files", utils.Number(int64(totalFiles)),
			"size", utils.Bytes(totalBytes),
			"rate", utils.Rate(int64(totalFiles), elapsed)+" files/s",
			"throughput", utils.ByteRate(totalBytes, elapsed),
			"duration", utils.Duration(elapsed))
		return nil
	},
}

func extractOne(ctx context.Context, archives archiveSeq) error {
	for opened, err := range archives {
		if err != nil {
			return err
		}

		f, ok := opened.reader.TryOpenFile(extractFile)
		if !ok {
			continue
		}

		out, err := export.CreatePath(cfg.Output, export.CleanComponentPath(f.Path(), cfg.LowercaseFileNames))
		if err != nil {
			return err
		}
		if err := f.ExtractContext(ctx, out); err != nil {
			return err
		}
		slog.Info("Extracted file", "archive", opened.archive.Name(), "path", f.Path(), "output", out, "size", utils.Bytes(f.Length()))
		return nil
	}
	return fmt.Errorf("%s: not found in any archive", extractFile)
}

func init() {
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "extract only this archive path")
	rootCmd.AddCommand(extractCmd)
}
