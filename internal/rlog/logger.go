// Package rlog provides the analysis engine's logging: a thin wrapper over
// go.uber.org/zap, passed explicitly to the orchestrator instead of reached
// through a package-level global (see the teacher's internal/logging
// category loggers, and design note "Global mutable options" in
// SPEC_FULL.md). The analysis stages below the orchestrator do not log.
package rlog

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// New builds a development logger when debug is true (human-readable,
// debug-level) and a production logger otherwise (JSON, info-level), mirroring
// cmd/nerd/main.go's zap.NewProductionConfig()/AtomicLevelAt(DebugLevel) split.
func New(debug bool) *zap.SugaredLogger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// Nop returns a logger that discards everything, for callers of the library
// who never configured one.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// WithRun returns a logger tagged with a fresh run id, so that concurrent
// analyze() calls driven by a caller (§5: the engine itself never runs more
// than one at a time) can still be told apart in interleaved log output.
func WithRun(base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Nop()
	}
	return base.With("run_id", uuid.NewString())
}

// Timer measures one pipeline stage's duration, mirroring the teacher's
// logging.Timer/StartTimer/Stop helpers.
type Timer struct {
	logger *zap.SugaredLogger
	stage  string
	start  time.Time
}

// StartTimer begins timing a named stage.
func StartTimer(logger *zap.SugaredLogger, stage string) *Timer {
	return &Timer{logger: logger, stage: stage, start: time.Now()}
}

// Stop logs the elapsed duration at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.logger != nil {
		t.logger.Debugw("stage complete", "stage", t.stage, "elapsed", elapsed)
	}
	return elapsed
}
