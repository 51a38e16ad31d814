//go:build windows

package notification

import (
	"log"
	"syscall"

	"github.com/lxn/win"
)

// ShowBlockingError shows a modal error box and returns once it is dismissed.
func ShowBlockingError(title, message string) {
	log.Printf("%s: %s", title, message)
	t, err := syscall.UTF16PtrFromString(title)
	if err != nil {
		return
	}
	m, err := syscall.UTF16PtrFromString(truncate(message))
	if err != nil {
		return
	}
	win.MessageBox(0, m, t, win.MB_OK|win.MB_ICONERROR|win.MB_TOPMOST|win.MB_SETFOREGROUND)
}
