package installer

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/thoreinstein/copa/internal/logging"
)

// Progress glyphs, matching the install script users already know.
var (
	glyphSuccess = color.New(color.FgGreen).Sprint("✓")
	glyphWarn    = color.New(color.FgYellow).Sprint("⚠")
	glyphFail    = color.New(color.FgRed).Sprint("✗")
	glyphInfo    = color.New(color.FgBlue).Sprint("ℹ")
)

// Plain glyphs used when the output writer does not support color.
const (
	plainSuccess = "✓"
	plainWarn    = "⚠"
	plainFail    = "✗"
	plainInfo    = "ℹ"
)

func (in *Installer) success(format string, args ...any) {
	in.printGlyph(glyphSuccess, plainSuccess, format, args...)
}

func (in *Installer) warn(format string, args ...any) {
	in.printGlyph(glyphWarn, plainWarn, format, args...)
	in.log.Warn(fmt.Sprintf(format, args...))
}

func (in *Installer) fail(format string, args ...any) {
	in.printGlyph(glyphFail, plainFail, format, args...)
}

func (in *Installer) info(format string, args ...any) {
	in.printGlyph(glyphInfo, plainInfo, format, args...)
}

func (in *Installer) printGlyph(colored, plain, format string, args ...any) {
	glyph := plain
	if logging.SupportsColor(in.out) {
		glyph = colored
	}
	fmt.Fprintf(in.out, "%s %s\n", glyph, fmt.Sprintf(format, args...))
}
