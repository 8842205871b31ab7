// Package log provides the small key/value logger used across flowide.
package log

import (
	"fmt"
	stdlog "log"
	"strings"
)

// Logger is the logger interface. The variadic arguments are key value pairs. The key must be a
// string and the value should have a meaningful string representation.
type Logger interface {
	Debug(string, ...any)
	Info(string, ...any)
	Error(string, ...any)
	With(...any) Logger
}

// Root is the logger used when no logger is injected.
var Root Logger = &Default{}

// Default writes through the standard library logger.
type Default struct {
	Tags  []any
	Quiet bool // drops debug lines
}

func (l *Default) Debug(m string, s ...any) {
	if l.Quiet {
		return
	}
	stdlog.Print(tfmt("DEB ", m, s, l.Tags))
}
func (l *Default) Info(m string, s ...any)  { stdlog.Print(tfmt("INF ", m, s, l.Tags)) }
func (l *Default) Error(m string, s ...any) { stdlog.Print(tfmt("ERR ", m, s, l.Tags)) }
func (l *Default) With(tags ...any) Logger {
	return &Default{Tags: join(l.Tags, tags), Quiet: l.Quiet}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, ...any)  {}
func (Nop) Info(string, ...any)   {}
func (Nop) Error(string, ...any)  {}
func (n Nop) With(...any) Logger { return n }

// Or returns l, or Root when l is nil.
func Or(l Logger) Logger {
	if l == nil {
		return Root
	}
	return l
}

func join(a, b []any) []any {
	t := make([]any, 0, len(a)+len(b))
	t = append(t, b...)
	return append(t, a...)
}

func tfmt(lvl, msg string, all ...[]any) string {
	var b strings.Builder
	b.WriteString(lvl)
	b.WriteString(msg)
	for _, tags := range all {
		for i, v := range tags {
			if i%2 == 0 {
				b.WriteByte(' ')
			} else {
				b.WriteByte('=')
			}
			b.WriteString(fmt.Sprint(v))
		}
	}
	return b.String()
}
