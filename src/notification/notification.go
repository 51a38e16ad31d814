// Package notification reports startup failures to a user who launched the
// resident without a console.
package notification

import "unicode/utf8"

const maxMessageRunes = 600

// truncate keeps message readable inside a dialog.
func truncate(message string) string {
	if utf8.RuneCountInString(message) <= maxMessageRunes {
		return message
	}
	runes := []rune(message)
	return string(runes[:maxMessageRunes]) + "..."
}
