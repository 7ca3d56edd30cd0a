// Package xlog provides the module-scoped structured logger used across the
// node, mirroring the teacher's log.NewModuleLogger(module) convention but
// backed by zap's SugaredLogger instead of a hand-rolled log15 wrapper.
package xlog

import (
	"go.uber.org/zap"
)

// Module name constants for NewModuleLogger. StateStore and Transition are
// declared but no logger is created for them. Kept as plain strings (rather
// than an enum) since new components are added far more often than the set
// of log sinks.
const (
	EventJournal     = "csm/journal"
	StateStore       = "csm/statestore"
	BlockTree        = "csm/tree"
	Transition       = "csm/transition"
	Worker           = "csm/worker"
	SubmitShim       = "csm/shim"
	Writer           = "writer"
	StorageDatabase  = "storage/database"
	StorageExec      = "storage/exec"
	RPC              = "networks/rpc"
	EventBus         = "eventbus"
	ReadModel        = "readmodel"
	StatusCache      = "statuscache"
	Node             = "node"
)

var base *zap.SugaredLogger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	base = l.Sugar()
}

// Logger is the interface every component logs through. The key-value
// argument convention (alternating key, value, key, value...) matches the
// teacher's log.Logger calls such as logger.Error("msg", "err", err).
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
	Crit(msg string, kv ...interface{})
	NewWith(kv ...interface{}) Logger
}

type moduleLogger struct {
	z *zap.SugaredLogger
}

// NewModuleLogger returns a Logger scoped to the given module name, the
// direct analogue of the teacher's log.NewModuleLogger(log.StorageDatabase).
func NewModuleLogger(module string) Logger {
	return &moduleLogger{z: base.With("module", module)}
}

func (l *moduleLogger) Debug(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }
func (l *moduleLogger) Info(msg string, kv ...interface{})  { l.z.Infow(msg, kv...) }
func (l *moduleLogger) Warn(msg string, kv ...interface{})  { l.z.Warnw(msg, kv...) }
func (l *moduleLogger) Error(msg string, kv ...interface{}) { l.z.Errorw(msg, kv...) }

// Crit logs at fatal-equivalent severity without terminating the process.
// The CSM worker's fatal-error path logs through Crit, records the error
// (Worker.FatalErr) and stops its loop; it neither exits the process nor
// signals a shutdown.
func (l *moduleLogger) Crit(msg string, kv ...interface{}) { l.z.Errorw("CRIT: "+msg, kv...) }

func (l *moduleLogger) NewWith(kv ...interface{}) Logger {
	return &moduleLogger{z: l.z.With(kv...)}
}
