package mlog

import (
	"io"
	"log"
)

type Level int

const (
	Basic Level = iota
	Detailed
)

// Logger receives progress and diagnostic messages. LogBasic is for
// messages a user normally wants to see, LogDetailed for verbose output.
type Logger interface {
	LogBasic(msg string)
	LogDetailed(msg string)
}

type stdLogger struct {
	l     *log.Logger
	level Level
}

// New writes messages up to level to w.
func New(w io.Writer, level Level) Logger {
	return &stdLogger{l: log.New(w, "crucible: ", log.LstdFlags), level: level}
}

func (s *stdLogger) LogBasic(msg string) {
	s.l.Print(msg)
}

func (s *stdLogger) LogDetailed(msg string) {
	if s.level >= Detailed {
		s.l.Print(msg)
	}
}

type nop struct{}

func (nop) LogBasic(string)    {}
func (nop) LogDetailed(string) {}

func Nop() Logger { return nop{} }

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return nop{}
	}
	return l
}
