package rscript

import (
	"os"

	"github.com/sirupsen/logrus"
)

// defaultLogger is a sane, quiet default that a host can override.
var defaultLogger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.WarnLevel,
}

var activeLogger = defaultLogger

// SetLogger overrides the package-level logger used for dispatch
// tracing. Passing nil restores the default.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		activeLogger = defaultLogger
		return
	}
	activeLogger = l
}

func logDispatchStart(s *Script, hookName string, input interface{}) {
	activeLogger.WithFields(logrus.Fields{
		"script":    s.info.Name,
		"hook":      hookName,
		"transport": s.transport.kind.label(),
		"input":     input,
	}).Debug("dispatching hook")
}

func logDispatchDone(s *Script, hookName string, err error) {
	fields := logrus.Fields{
		"script":    s.info.Name,
		"hook":      hookName,
		"transport": s.transport.kind.label(),
	}
	if err != nil {
		activeLogger.WithFields(fields).WithError(err).Warn("hook dispatch failed")
		return
	}
	activeLogger.WithFields(fields).Debug("hook dispatch complete")
}

func (k transportKind) label() string {
	switch k {
	case transportDaemon:
		return "daemon"
	case transportOneShot:
		return "oneshot"
	case transportDynamicLib:
		return "dynamiclib"
	default:
		return "unknown"
	}
}
