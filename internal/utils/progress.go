package utils

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// Progress is a terminal progress bar. It draws nothing when stderr is not a TTY.
// Update may be called from several goroutines.
type Progress struct {
	mu          sync.Mutex
	container   *mpb.Progress
	bar         *mpb.Bar
	description string
}

var descLength = 28

// NewProgress creates a bar for total items titled with name.
func NewProgress(name string, total int, enabled bool) *Progress {
	p := &Progress{}
	if !enabled || !isTerminal() || total <= 0 {
		return p
	}

	fmt.Fprintln(os.Stderr)
	p.container = mpb.New(
		mpb.WithOutput(os.Stderr),
		mpb.WithWidth(64),
		mpb.WithRefreshRate(100*time.Millisecond),
	)
	p.bar = p.container.New(int64(total),
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{C: decor.DindentRight | decor.DextraSpace}),
			decor.Any(func(decor.Statistics) string {
				p.mu.Lock()
				defer p.mu.Unlock()
				return shorten(p.description, descLength)
			}, decor.WC{W: descLength, C: decor.DindentRight}),
			decor.CountersNoUnit("%d/%d", decor.WC{C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)
	return p
}

// Update sets the completed count and the item being shown.
func (p *Progress) Update(current int, total int, description string) {
	if p.bar == nil {
		return
	}

	p.mu.Lock()
	p.description = description
	p.mu.Unlock()
	p.bar.SetCurrent(int64(current))
}

// Finish waits for the bar to render its final state.
func (p *Progress) Finish() {
	if p.container == nil {
		return
	}
	if !p.bar.Completed() {
		p.bar.Abort(false)
	}
	p.container.Wait()
	fmt.Fprintln(os.Stderr)
}

// shorten keeps the tail of s, which is the most specific part of a path.
func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return ".." + s[len(s)-(n-2):]
}

// isTerminal checks if stderr is a terminal (TTY)
func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
