//go:build windows

package platform

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                = windows.NewLazySystemDLL("user32.dll")
	kernel32              = windows.NewLazySystemDLL("kernel32.dll")
	shcore                = windows.NewLazySystemDLL("shcore.dll")
	procSetLastError      = kernel32.NewProc("SetLastError")
	procIsIconic          = user32.NewProc("IsIconic")
	procGetWindowRect     = user32.NewProc("GetWindowRect")
	procGetWindowTextW    = user32.NewProc("GetWindowTextW")
	procGetDpiForWindow   = user32.NewProc("GetDpiForWindow")
	procGetWindowLongPtrW = user32.NewProc("GetWindowLongPtrW")
	procSetWindowLongPtrW = user32.NewProc("SetWindowLongPtrW")
	procSetWindowPos      = user32.NewProc("SetWindowPos")
	procGetWindow         = user32.NewProc("GetWindow")
	procGetCursorPos      = user32.NewProc("GetCursorPos")
	procMonitorFromPoint  = user32.NewProc("MonitorFromPoint")
	procGetDpiForMonitor  = shcore.NewProc("GetDpiForMonitor")
)

const (
	wsExTopmost = 0x00000008

	gwHwndPrev = 3

	swpNoSize     = 0x0001
	swpNoMove     = 0x0002
	swpNoActivate = 0x0010

	monitorDefaultToNearest = 0x00000002
	monitorDefaultToPrimary = 0x00000001
	mdtEffectiveDPI         = 0
)

var (
	// GetWindowLongPtrW indices are negative; kept as variables so the
	// uintptr conversion sign-extends.
	gwlExStyle     int32 = -20
	gwlpHwndParent int32 = -8

	hwndTopmost   = ^uintptr(0)     // (HWND)-1
	hwndNoTopmost = ^uintptr(0) - 1 // (HWND)-2
)

var (
	enumMu      sync.Mutex
	enumHandles handleCollector

	// EnumWindows shares one callback; the runtime never frees callback slots.
	enumWindowsProc = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		if windows.IsWindow(hwnd) {
			enumHandles.add(WindowHandle(hwnd))
		}
		return 1
	})
)

type winRect struct {
	Left, Top, Right, Bottom int32
}

type winPoint struct {
	X, Y int32
}

// WindowsBackend implements Backend with user32.
type WindowsBackend struct {
	includeSelf bool
	selfPID     uint32
	logger      *slog.Logger
}

var _ Backend = (*WindowsBackend)(nil)

// Open returns the Win32 backend unless opts.Headless is set.
func Open(opts Options) (Backend, error) {
	if opts.Headless {
		return NewInert(), nil
	}
	return &WindowsBackend{
		includeSelf: opts.IncludeSelf,
		selfPID:     windows.GetCurrentProcessId(),
		logger:      opts.logger(),
	}, nil
}

func (b *WindowsBackend) Name() string { return "win32" }
func (b *WindowsBackend) Close()       {}

func (b *WindowsBackend) ActiveWindow() (WindowHandle, error) {
	return WindowHandle(windows.GetForegroundWindow()), nil
}

func (b *WindowsBackend) ListWindows(visibleOnly bool) ([]WindowSnapshot, error) {
	enumMu.Lock()
	handles, err := enumHandles.collect(func() error {
		return windows.EnumWindows(enumWindowsProc, nil)
	})
	enumMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}

	pointer, primary := screenScales()
	out := make([]WindowSnapshot, 0, len(handles))
	for _, h := range handles {
		hwnd := windows.HWND(h)
		if visibleOnly && !windows.IsWindowVisible(hwnd) {
			continue
		}
		var pid uint32
		_, _ = windows.GetWindowThreadProcessId(hwnd, &pid)
		if !b.includeSelf && pid == b.selfPID {
			continue
		}
		out = append(out, snapshotOf(hwnd, pid, pointer, primary))
	}
	return out, nil
}

func (b *WindowsBackend) QueryWindow(h WindowHandle) WindowSnapshot {
	hwnd := windows.HWND(h)
	if h == 0 || !windows.IsWindow(hwnd) {
		return WindowSnapshot{}
	}
	var pid uint32
	_, _ = windows.GetWindowThreadProcessId(hwnd, &pid)
	pointer, primary := screenScales()
	return snapshotOf(hwnd, pid, pointer, primary)
}

func (b *WindowsBackend) IsValid(h WindowHandle) bool {
	return h != 0 && windows.IsWindow(windows.HWND(h))
}

func (b *WindowsBackend) Attach(overlay, target WindowHandle) error {
	if overlay == 0 || target == 0 {
		return fmt.Errorf("attach %s to %s: zero handle", overlay, target)
	}
	if !b.IsValid(overlay) || !b.IsValid(target) {
		return fmt.Errorf("attach %s to %s: %w", overlay, target, ErrWindowGone)
	}
	if b.Owner(overlay) != target {
		if err := setOwner(overlay, target); err != nil {
			return fmt.Errorf("attach %s to %s: %w", overlay, target, err)
		}
	}
	return b.EnsureZOrder(overlay, target)
}

func (b *WindowsBackend) Detach(overlay WindowHandle) error {
	if overlay == 0 || !b.IsValid(overlay) {
		return nil
	}
	if b.Owner(overlay) == 0 {
		return nil
	}
	if err := setOwner(overlay, 0); err != nil {
		return fmt.Errorf("detach %s: %w", overlay, err)
	}
	return nil
}

// setOwner writes GWLP_HWNDPARENT. A zero return is only a failure when the
// last error was set, since zero is also a valid previous owner.
func setOwner(overlay, owner WindowHandle) error {
	procSetLastError.Call(0)
	r, _, err := procSetWindowLongPtrW.Call(uintptr(overlay), uintptr(gwlpHwndParent), uintptr(owner))
	if r == 0 && err != nil && err != windows.ERROR_SUCCESS {
		return fmt.Errorf("SetWindowLongPtrW: %w", err)
	}
	return nil
}

func (b *WindowsBackend) Owner(overlay WindowHandle) WindowHandle {
	if overlay == 0 {
		return 0
	}
	r, _, _ := procGetWindowLongPtrW.Call(uintptr(overlay), uintptr(gwlpHwndParent))
	return WindowHandle(r)
}

func (b *WindowsBackend) EnsureZOrder(overlay, target WindowHandle) error {
	if overlay == 0 || target == 0 {
		return nil
	}
	targetTop := isTopmost(uintptr(target))
	if isTopmost(uintptr(overlay)) != targetTop {
		insertAfter := hwndNoTopmost
		if targetTop {
			insertAfter = hwndTopmost
		}
		procSetWindowPos.Call(uintptr(overlay), insertAfter, 0, 0, 0, 0, swpNoMove|swpNoSize|swpNoActivate)
	}

	prev := previousInGroup(uintptr(target), targetTop)
	if prev == 0 || prev == uintptr(overlay) {
		return nil
	}
	r, _, err := procSetWindowPos.Call(uintptr(overlay), prev, 0, 0, 0, 0, swpNoMove|swpNoSize|swpNoActivate)
	if r == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}
	return nil
}

// previousInGroup walks GW_HWNDPREV from hwnd to the first window whose
// topmost flag equals topmost.
func previousInGroup(hwnd uintptr, topmost bool) uintptr {
	cur := hwnd
	for {
		prev, _, _ := procGetWindow.Call(cur, gwHwndPrev)
		if prev == 0 {
			return 0
		}
		if isTopmost(prev) == topmost {
			return prev
		}
		cur = prev
	}
}

func isTopmost(hwnd uintptr) bool {
	ex, _, _ := procGetWindowLongPtrW.Call(hwnd, uintptr(gwlExStyle))
	return ex&wsExTopmost != 0
}

func snapshotOf(hwnd windows.HWND, pid uint32, pointerScale, primaryScale float64) WindowSnapshot {
	snap := WindowSnapshot{
		Handle:      WindowHandle(hwnd),
		Visible:     windows.IsWindowVisible(hwnd),
		AlwaysOnTop: isTopmost(uintptr(hwnd)),
		Title:       windowText(hwnd),
		Class:       className(hwnd),
		Process:     processName(pid),
	}
	iconic, _, _ := procIsIconic.Call(uintptr(hwnd))
	snap.Minimized = iconic != 0

	var r winRect
	if ok, _, _ := procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&r))); ok != 0 {
		var dpi float64
		if procGetDpiForWindow.Find() == nil {
			v, _, _ := procGetDpiForWindow.Call(uintptr(hwnd))
			dpi = float64(v)
		}
		scale := ResolveScale(dpi, pointerScale, primaryScale)
		snap.Bounds = ToLogical(int(r.Left), int(r.Top), int(r.Right-r.Left), int(r.Bottom-r.Top), scale)
	}
	return snap
}

func windowText(hwnd windows.HWND) string {
	buf := make([]uint16, 512)
	r, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	n := int(r)
	if n <= 0 || n > len(buf) {
		return ""
	}
	return strings.TrimSpace(windows.UTF16ToString(buf[:n]))
}

func className(hwnd windows.HWND) string {
	buf := make([]uint16, 256)
	n, err := windows.GetClassName(hwnd, &buf[0], int32(len(buf)-1))
	if err != nil || n <= 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

// processName returns the executable base name without extension.
func processName(pid uint32) string {
	if pid == 0 {
		return ""
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	base := filepath.Base(windows.UTF16ToString(buf[:size]))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// screenScales returns the DPI scale of the monitor under the cursor and of
// the primary monitor; zero when unavailable.
func screenScales() (pointer, primary float64) {
	if procGetDpiForMonitor.Find() != nil {
		return 0, 0
	}
	var pt winPoint
	if ok, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt))); ok != 0 {
		pointer = monitorScale(pt, monitorDefaultToNearest)
	}
	primary = monitorScale(winPoint{}, monitorDefaultToPrimary)
	return pointer, primary
}

func monitorScale(pt winPoint, flags uintptr) float64 {
	packed := uintptr(uint32(pt.X)) | uintptr(uint32(pt.Y))<<32
	mon, _, _ := procMonitorFromPoint.Call(packed, flags)
	if mon == 0 {
		return 0
	}
	var dpiX, dpiY uint32
	hr, _, _ := procGetDpiForMonitor.Call(mon, mdtEffectiveDPI,
		uintptr(unsafe.Pointer(&dpiX)), uintptr(unsafe.Pointer(&dpiY)))
	if hr != 0 || dpiX == 0 {
		return 0
	}
	return float64(dpiX) / BaseDPI
}
