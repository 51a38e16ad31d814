// Package langdetect identifies the language of short OCR and caption text.
package langdetect

import (
	"errors"
	"log"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"

	"screen-translate/src/logutil"
)

// Unknown is the language marker used when detection fails.
const Unknown = "unknown"

var ErrDetectionFailed = errors.New("language detection failed")

// Detect returns the ISO 639-1 code of text. Detection is deterministic for
// a given input.
func Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return Unknown, ErrDetectionFailed
	}
	// whatlanggo reads kanji-only lines as Chinese; kana or bare
	// ideographs are taken as Japanese.
	if han, kana, other := countScripts(text); kana > 0 || (han > 0 && other == 0) {
		log.Printf("Langdetect: ja (script) for %q", logutil.Sanitize(text))
		return "ja", nil
	}
	info := whatlanggo.Detect(text)
	code := ""
	if info.Lang >= 0 {
		code = info.Lang.Iso6391()
	}
	if code == "" {
		log.Printf("Langdetect: no language for %q", logutil.Sanitize(text))
		return Unknown, ErrDetectionFailed
	}
	log.Printf("Langdetect: %s (confidence %.2f) for %q", code, info.Confidence, logutil.Sanitize(text))
	return code, nil
}

// IsJapanese reports whether text is detected as Japanese.
func IsJapanese(text string) bool {
	code, err := Detect(text)
	return err == nil && code == "ja"
}

// countScripts counts letters that are Han ideographs, kana, or anything
// else. Digits, punctuation and symbols are ignored.
func countScripts(text string) (han, kana, other int) {
	for _, r := range text {
		switch {
		case !unicode.IsLetter(r):
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana++
		default:
			other++
		}
	}
	return han, kana, other
}
