package ui

import (
	"testing"
	"time"
)

// NewRawMode against a non-terminal stdin (the case under `go test`)
// should make Enable/Disable harmless no-ops rather than erroring.
func TestRawModeNoopWhenNotATerminal(t *testing.T) {
	r := NewRawMode()
	if err := r.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := r.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
}

func TestRawModePauseResumeAreSafeWithoutTerminal(t *testing.T) {
	r := NewRawMode()
	r.Pause()
	r.Resume()
}

func TestInterrupterSingleTapFiresInterruptNotQuit(t *testing.T) {
	in := NewInterrupter(nil)
	defer in.Stop()

	in.tap()

	select {
	case <-in.Interrupt:
	case <-time.After(time.Second):
		t.Fatal("expected Interrupt to fire on a single tap")
	}
	select {
	case <-in.Quit:
		t.Fatal("did not expect Quit to fire on a single tap")
	default:
	}
}

func TestInterrupterDoubleTapFiresQuit(t *testing.T) {
	in := NewInterrupter(nil)
	defer in.Stop()

	in.tap()
	<-in.Interrupt
	in.tap()

	select {
	case <-in.Quit:
	case <-time.After(time.Second):
		t.Fatal("expected Quit to fire on a double tap within the window")
	}
}

func TestInterrupterTapAfterWindowIsNotADoubleTap(t *testing.T) {
	in := NewInterrupter(nil)
	defer in.Stop()

	in.tap()
	<-in.Interrupt
	time.Sleep(doubleTapWindow + 50*time.Millisecond)
	in.tap()

	select {
	case <-in.Interrupt:
	case <-time.After(time.Second):
		t.Fatal("expected a second Interrupt after the double-tap window elapsed")
	}
	select {
	case <-in.Quit:
		t.Fatal("did not expect Quit after the window elapsed")
	default:
	}
}
