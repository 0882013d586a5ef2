package output

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// UseColor reports whether colored output should be written to f. It needs
// the configured preference, a terminal and no NO_COLOR variable.
func UseColor(f *os.File, preferred bool) bool {
	if !preferred || os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Writer wraps f so ANSI sequences also render on Windows consoles
func Writer(f *os.File, color bool) io.Writer {
	if !color {
		return colorable.NewNonColorable(f)
	}
	return colorable.NewColorable(f)
}
