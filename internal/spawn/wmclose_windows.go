//go:build windows

package spawn

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// errNoWindowToClose is returned when a process owns no top-level windows
// to post WM_CLOSE to; Job.Cancel then reports that no cancellation took
// place.
var errNoWindowToClose = errors.New("spawn: process has no window to close")

var (
	user32           = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows  = user32.NewProc("EnumWindows")
	procGetWindowPID = user32.NewProc("GetWindowThreadProcessId")
	procPostMessageW = user32.NewProc("PostMessageW")
)

const wmClose = 0x0010

// postCloseToProcess posts WM_CLOSE to every top-level window owned by pid,
// the Windows analog of sending SIGINT: well-behaved GUI and console
// applications treat it as a polite request to exit.
func postCloseToProcess(pid uint32) error {
	var posted bool
	var enumErr error

	cb := syscall.NewCallback(func(hwnd syscall.Handle, _ uintptr) uintptr {
		var owner uint32
		procGetWindowPID.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&owner)))
		if owner == pid {
			r, _, err := procPostMessageW.Call(uintptr(hwnd), wmClose, 0, 0)
			if r == 0 {
				enumErr = err
			} else {
				posted = true
			}
		}
		return 1 // continue enumeration
	})

	procEnumWindows.Call(cb, 0)

	if !posted {
		if enumErr != nil {
			return enumErr
		}
		return errNoWindowToClose
	}
	return nil
}
