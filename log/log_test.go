package log

import (
	"errors"
	"testing"
	"time"
)

var (
	sampleInt      = 3
	sampleBytes    = []byte("123")
	sampleList     = []int64{10, 0, -10}
	sampleDuration = time.Second

	errSample = errors.New("some error")
)

func TestLogOutput(t *testing.T) {
	Init("debug", "stderr", nil)
	// Exercise every form; failures here surface as panics.
	Infof("added %d keys to ledger %x", sampleInt, sampleBytes)
	Debugw("loading pool", "owner", "abc123", "tier", "gold")
	Errorf("cannot settle request: %v", errSample)
	Warnw("various types",
		"list", sampleList,
		"duration", sampleDuration,
	)
	Error(errSample)
	if Level() != "debug" {
		t.Errorf("expected debug level, got %s", Level())
	}
}

func TestInvalidLevelPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Init with a bogus level should panic")
		}
	}()
	Init("loud", "stderr", nil)
}
