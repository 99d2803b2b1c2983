package terminal

import (
	"fmt"
	"io"
	"strings"
)

const barWidth = 40

// ProgressBar renders a fixed-width bar such as "=====>    ".
func ProgressBar(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	pos := int(float64(barWidth) * percent / 100)
	var b strings.Builder
	for i := 0; i < barWidth; i++ {
		switch {
		case i < pos:
			b.WriteByte('=')
		case i == pos:
			b.WriteByte('>')
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// ProgressPrinter returns a progress callback drawing on w. Streams of
// unknown size show a byte counter instead of a bar.
func ProgressPrinter(w io.Writer) func(name string, transferred, total int64) {
	return func(name string, transferred, total int64) {
		if total <= 0 {
			fmt.Fprintf(w, "\r%s: %s received", name, formatSize(transferred))
			return
		}

		percent := float64(transferred) / float64(total) * 100
		fmt.Fprintf(w, "\r%s: [%s] %.1f%%", name, ProgressBar(percent), percent)
		if transferred >= total {
			fmt.Fprintln(w)
		}
	}
}
