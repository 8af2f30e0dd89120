package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var (
	// Verbosity is bound to the -v flag. 0 is info, 1 is debug, 2+ is trace.
	Verbosity int
)

func levelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.InfoLevel
	case verbosity == 1:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// GetLogger returns a logger writing to out. Human-friendly console output is
// used when out is a terminal, JSON lines otherwise.
func GetLogger(out io.Writer, isTerminal bool) zerolog.Logger {
	l := zerolog.New(out).With().Timestamp().Logger().Level(levelFor(Verbosity))

	if isTerminal {
		l = l.Output(zerolog.ConsoleWriter{Out: out})
	}

	return l
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
