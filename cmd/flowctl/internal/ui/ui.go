// Package ui prints flowctl status lines. Command results go to stdout in
// the selected output format; everything here goes to the status writer.
package ui

import (
	"fmt"
	"io"
	"strings"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Printer writes status lines, colored unless Plain is set.
type Printer struct {
	W     io.Writer
	Plain bool
}

func (p *Printer) paint(color, s string) string {
	if p.Plain {
		return s
	}
	return color + s + colorReset
}

// Header prints a section header
func (p *Printer) Header(title string) {
	line := strings.Repeat("=", len(title)+4)
	fmt.Fprintf(p.W, "\n%s\n", p.paint(colorBold+colorBlue, line))
	fmt.Fprintf(p.W, "%s\n", p.paint(colorBold+colorBlue, "  "+title+"  "))
	fmt.Fprintf(p.W, "%s\n\n", p.paint(colorBold+colorBlue, line))
}

// Success prints a success message
func (p *Printer) Success(message string) {
	fmt.Fprintf(p.W, "%s %s\n", p.paint(colorGreen, "✓"), message)
}

// Error prints an error message
func (p *Printer) Error(message string) {
	fmt.Fprintf(p.W, "%s %s\n", p.paint(colorRed, "✗"), message)
}

// Warning prints a warning message
func (p *Printer) Warning(message string) {
	fmt.Fprintf(p.W, "%s %s\n", p.paint(colorYellow, "⚠"), message)
}

// Info prints an informational message
func (p *Printer) Info(message string) {
	fmt.Fprintf(p.W, "  %s\n", message)
}

// Detail prints a dimmed key/value line.
func (p *Printer) Detail(key, value string) {
	fmt.Fprintf(p.W, "  %s %s\n", p.paint(colorGray, key+":"), value)
}
