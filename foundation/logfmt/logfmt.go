// Package logfmt provides a thin helper for prefixing log lines with a
// per-worker identity (client id, vehicle id, stop id) without needing a
// structured logging dependency.
package logfmt

import (
	"fmt"
	logger "log"
)

// Prefixed wraps a *log.Logger and prepends a fixed tag to every line.
type Prefixed struct {
	log *logger.Logger
	tag string
}

// For returns a Prefixed logger tagging every line with tag, e.g. "client:C1".
func For(log *logger.Logger, tag string) *Prefixed {
	return &Prefixed{log: log, tag: tag}
}

func (p *Prefixed) Printf(format string, v ...interface{}) {
	p.log.Printf("%s: %s", p.tag, fmt.Sprintf(format, v...))
}

func (p *Prefixed) Println(v ...interface{}) {
	p.log.Println(append([]interface{}{p.tag + ":"}, v...)...)
}
