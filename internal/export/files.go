// Package export writes archive contents to disk.
package export

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/jchantrell/eblextract/internal/binder"
	"github.com/jchantrell/eblextract/internal/dcx"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"
)

// Options controls an export run.
type Options struct {
	OutputDir string
	// SkipUnknown leaves out records whose name is not in the name list.
	SkipUnknown bool
	// Lowercase lower-cases every output path.
	Lowercase bool
	// DecompressDCX writes the payload of DCX containers instead of the container.
	DecompressDCX bool
	// Workers bounds concurrent file writes. Zero means GOMAXPROCS.
	Workers int
}

// Result describes one exported file.
type Result struct {
	Path         string
	Output       string
	Hash         uint64
	Size         int64
	Encrypted    bool
	Unknown      bool
	Decompressed bool
	// Digest is the hex BLAKE3-256 of the bytes written.
	Digest string
}

// Stats summarizes an export run.
type Stats struct {
	Files    int
	Skipped  int
	Bytes    int64
	Duration time.Duration
}

// ProgressCallback is called to report export progress
type ProgressCallback func(current int, total int, description string)

// Exporter handles exporting files from archives to disk
type Exporter struct {
	opts Options
}

// NewExporter creates a new file exporter
func NewExporter(opts Options) *Exporter {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Exporter{opts: opts}
}

// Export writes every file of r under the output directory. Results are in archive order.
// On error, files already written are left in place.
func (e *Exporter) Export(ctx context.Context, r *binder.Reader, progress ProgressCallback) ([]Result, Stats, error) {
	start := time.Now()
	var stats Stats

	var files []*binder.File
	for f := range r.Files() {
		if e.opts.SkipUnknown && f.PathUnknown() {
			stats.Skipped++
			continue
		}
		files = append(files, f)
	}

	if err := os.MkdirAll(e.opts.OutputDir, 0755); err != nil {
		return nil, stats, fmt.Errorf("creating output directory: %w", err)
	}

	results := make([]Result, len(files))
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, group := range e.groupByOutput(files) {
		// Records sharing an output path are written by one worker in archive order, so the last one wins.
		g.Go(func() error {
			for _, i := range group.indices {
				f := files[i]
				res, err := e.exportFile(gctx, f, group.output)
				if err != nil {
					return fmt.Errorf("exporting %s: %w", f.Path(), err)
				}
				results[i] = res

				mu.Lock()
				done++
				stats.Bytes += res.Size
				if progress != nil {
					progress(done, len(files), res.Output)
				}
				mu.Unlock()
			}
			return nil
		})
	}

	err := g.Wait()
	stats.Files = done
	stats.Duration = time.Since(start)
	if err != nil {
		return nil, stats, err
	}
	return results, stats, nil
}

type outputGroup struct {
	output  string
	indices []int
}

// groupByOutput buckets files by cleaned output path, in order of first appearance.
func (e *Exporter) groupByOutput(files []*binder.File) []outputGroup {
	var groups []outputGroup
	seen := make(map[string]int, len(files))
	for i, f := range files {
		output := CleanComponentPath(f.Path(), e.opts.Lowercase)
		if gi, ok := seen[output]; ok {
			first := files[groups[gi].indices[0]]
			slog.Warn("output path shared by several files, the last one in the archive is kept",
				"output", output, "first", first.Path(), "path", f.Path())
			groups[gi].indices = append(groups[gi].indices, i)
			continue
		}
		seen[output] = len(groups)
		groups = append(groups, outputGroup{output: output, indices: []int{i}})
	}
	return groups
}

func (e *Exporter) exportFile(ctx context.Context, f *binder.File, output string) (Result, error) {
	res := Result{
		Path:      f.Path(),
		Output:    output,
		Hash:      f.Hash(),
		Encrypted: f.Encrypted(),
		Unknown:   f.PathUnknown(),
	}

	out, err := CreatePath(e.opts.OutputDir, res.Output)
	if err != nil {
		return res, err
	}

	if e.opts.DecompressDCX {
		return e.writeDecompressed(ctx, f, out, res)
	}

	file, err := os.Create(out)
	if err != nil {
		return res, fmt.Errorf("creating %s: %w", out, err)
	}
	defer file.Close()

	h := blake3.New()
	n, err := f.WriteToContext(ctx, io.MultiWriter(file, h))
	if err != nil {
		return res, err
	}
	if err := file.Close(); err != nil {
		return res, fmt.Errorf("closing %s: %w", out, err)
	}

	res.Size = n
	res.Digest = hex.EncodeToString(h.Sum(nil))
	slog.Debug("exported file", "path", res.Path, "output", out, "size", n)
	return res, nil
}

// writeDecompressed reads the whole file and unwraps it when it is a DCX container.
// Containers that cannot be decoded are written unchanged.
func (e *Exporter) writeDecompressed(ctx context.Context, f *binder.File, out string, res Result) (Result, error) {
	data, err := f.BytesContext(ctx)
	if err != nil {
		return res, err
	}

	if dcx.IsDCX(data) {
		raw, err := dcx.Decompress(data)
		switch {
		case err == nil:
			data = raw
			res.Decompressed = true
		case errors.Is(err, dcx.ErrUnsupportedFormat):
			slog.Warn("leaving DCX container compressed", "path", res.Path, "error", err)
		default:
			return res, fmt.Errorf("decompressing: %w", err)
		}
	}

	if err := os.WriteFile(out, data, 0644); err != nil {
		return res, fmt.Errorf("writing file %s: %w", out, err)
	}

	sum := blake3.Sum256(data)
	res.Size = int64(len(data))
	res.Digest = hex.EncodeToString(sum[:])
	slog.Debug("exported file", "path", res.Path, "output", out, "size", res.Size, "decompressed", res.Decompressed)
	return res, nil
}
