package rlog

import "testing"

func TestNewNeverReturnsNil(t *testing.T) {
	if New(true) == nil {
		t.Fatal("New(true) returned nil")
	}
	if New(false) == nil {
		t.Fatal("New(false) returned nil")
	}
}

func TestWithRunReturnsDistinctLoggers(t *testing.T) {
	a := WithRun(Nop())
	b := WithRun(Nop())
	if a == b {
		t.Fatal("expected distinct sugared loggers per run")
	}
}

func TestTimerStopNeverPanicsWithNilLogger(t *testing.T) {
	timer := StartTimer(nil, "stage")
	if timer.Stop() < 0 {
		t.Fatal("elapsed duration should never be negative")
	}
}
