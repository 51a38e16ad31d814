//go:build !windows

package notification

import "log"

// ShowBlockingError logs the message on platforms without a dialog.
func ShowBlockingError(title, message string) {
	log.Printf("%s: %s", title, truncate(message))
}
