package agentbuild

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/slok/updash/internal/printer"
)

// progressWriter wraps an io.Writer to display the download progress.
type progressWriter struct {
	dst          io.Writer
	statusWriter io.Writer
	total        int64
	written      int64
	mu           sync.Mutex
}

// newProgressWriter creates a new progress writer, dst receives the data and statusWriter
// the progress. If total is 0 or negative only the written bytes are shown.
func newProgressWriter(dst io.Writer, statusWriter io.Writer, total int64) *progressWriter {
	return &progressWriter{
		dst:          dst,
		statusWriter: statusWriter,
		total:        total,
	}
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.dst.Write(p)

	pw.mu.Lock()
	pw.written += int64(n)
	pw.printProgress()
	pw.mu.Unlock()

	return n, err
}

// finish ends the progress line.
func (pw *progressWriter) finish() {
	fmt.Fprintln(pw.statusWriter)
}

func (pw *progressWriter) printProgress() {
	if pw.total <= 0 {
		fmt.Fprintf(pw.statusWriter, "\r  %s downloaded", printer.FormatBytes(pw.written))
		return
	}

	const barWidth = 30
	pct := float64(pw.written) / float64(pw.total) * 100
	filled := min(int(pct/100*barWidth), barWidth)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
	fmt.Fprintf(pw.statusWriter, "\r  agent [%s] %3.0f%% %s / %s", bar, pct, printer.FormatBytes(pw.written), printer.FormatBytes(pw.total))
}
