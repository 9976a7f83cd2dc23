package loom

import "github.com/labstack/gommon/log"

// Logger receives binding and reconciliation diagnostics: skipped callback
// references, unresolvable paths, stale resolution sites. Per-binding
// problems never abort the surrounding bind; they are reported here.
var Logger = newLogger()

func newLogger() *log.Logger {
	l := log.New("loom")
	l.SetLevel(log.WARN)
	return l
}
