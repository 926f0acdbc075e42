package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op that must not reach the previous logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestComponentPrefix(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})

	Component("position").Printf("fix at %d", 3)
	if got != "[position] fix at 3" {
		t.Errorf("Printf = %q, want %q", got, "[position] fix at 3")
	}
}

func TestDebugfHonoursVerbose(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetVerbose(false)
	}()

	lines := 0
	SetLogger(func(string, ...interface{}) { lines++ })

	log := Component("track")
	SetVerbose(false)
	log.Debugf("hidden")
	if lines != 0 {
		t.Fatalf("Debugf logged %d lines with verbose off", lines)
	}

	SetVerbose(true)
	if !Verbose() {
		t.Fatal("Verbose() = false after SetVerbose(true)")
	}
	log.Debugf("shown")
	if lines != 1 {
		t.Errorf("Debugf logged %d lines with verbose on, want 1", lines)
	}
}
