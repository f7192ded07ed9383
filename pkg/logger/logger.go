// Package logger is the leveled logger carried in every context. Levels
// below the configured one are dropped; SILENCE drops everything, which the
// tests use.
package logger

import (
	"log"
)

const (
	DEBUG int = iota
	INFO
	WARNING
	ERROR
	SILENCE
)

type Logger interface {
	Debugf(msg string, a ...any)
	Infof(msg string, a ...any)
	Warnf(msg string, a ...any)
	Errorf(msg string, a ...any)
}

type stdLogger struct {
	level int
}

func NewLogger(level int) *stdLogger {
	return &stdLogger{level: level}
}

func (l *stdLogger) logf(level int, msg string, a ...any) {
	if l.level <= level {
		log.Printf(msg+"\n", a...)
	}
}

func (l *stdLogger) Debugf(msg string, a ...any) {
	l.logf(DEBUG, msg, a...)
}

func (l *stdLogger) Infof(msg string, a ...any) {
	l.logf(INFO, msg, a...)
}

func (l *stdLogger) Warnf(msg string, a ...any) {
	l.logf(WARNING, msg, a...)
}

func (l *stdLogger) Errorf(msg string, a ...any) {
	l.logf(ERROR, msg, a...)
}
