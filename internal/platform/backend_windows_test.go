//go:build windows

package platform

import (
	"errors"
	"testing"

	"golang.org/x/sys/windows"
)

func TestWindowsAttachRejectsDeadHandles(t *testing.T) {
	b := &WindowsBackend{}

	if err := b.Attach(0, 1); err == nil {
		t.Fatal("Attach with a zero overlay succeeded")
	}

	const dead WindowHandle = 0x7ffffff0
	if err := b.Attach(dead, dead+2); !errors.Is(err, ErrWindowGone) {
		t.Fatalf("Attach(dead) = %v, want ErrWindowGone", err)
	}
	if err := b.Detach(dead); err != nil {
		t.Fatalf("Detach(dead) = %v, want nil", err)
	}
}

func TestWindowsListWindowsRepeatedly(t *testing.T) {
	b := &WindowsBackend{selfPID: windows.GetCurrentProcessId()}
	for i := 0; i < 2500; i++ {
		if _, err := b.ListWindows(true); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}
}

func TestWindowsWindowTextOfDesktop(t *testing.T) {
	// The desktop window has no title; the call must not fail or panic.
	if got := windowText(windows.GetDesktopWindow()); got != "" {
		t.Logf("desktop title %q", got)
	}
	if got := windowText(0); got != "" {
		t.Fatalf("windowText(0) = %q, want empty", got)
	}
}
