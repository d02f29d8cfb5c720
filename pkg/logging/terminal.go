package logging

import (
	tsize "github.com/kopoli/go-terminal-size"
)

// TermWidth is the width of the terminal on stdout, or 80 columns when stdout is not a terminal.
func TermWidth() int {
	size, err := tsize.GetSize()
	if err != nil || size.Width <= 0 {
		return 80
	}
	return size.Width
}
