// Package translate converts OCR text to the target language, preferring an
// online service and falling back to a locally served model.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"screen-translate/src/langdetect"
	"screen-translate/src/logutil"
)

// InvalidInputText is returned together with ErrInvalidInput.
const InvalidInputText = "Invalid input text."

var (
	ErrInvalidInput  = errors.New("invalid input text")
	ErrOnlineFailed  = errors.New("online translation failed")
	ErrOfflineFailed = errors.New("offline translation failed")
)

// OnlineBackend is a remote machine-translation service keyed by target language.
type OnlineBackend interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// OfflineBackend translates with a model selected by the source/target pair.
type OfflineBackend interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Prober reports whether the online service is worth trying.
type Prober interface {
	Reachable(ctx context.Context) bool
}

// TCPProber dials a well-known host with a short timeout.
type TCPProber struct {
	Address string
	Timeout time.Duration
}

func (p TCPProber) Reachable(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		log.Printf("Translate: no internet connection (%s): %v", p.Address, err)
		return false
	}
	_ = conn.Close()
	return true
}

// Translator implements the online-first, offline-fallback strategy.
type Translator struct {
	Target  string
	Online  OnlineBackend
	Offline OfflineBackend
	Prober  Prober
	// ForceOffline skips the probe and the online service entirely.
	ForceOffline bool
	// Detect defaults to langdetect.Detect.
	Detect func(text string) (string, error)
}

// Translate returns the translation of text. Empty or whitespace-only input
// yields InvalidInputText and ErrInvalidInput without touching any backend.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		log.Printf("Translate: invalid input text %q", logutil.Sanitize(text))
		return InvalidInputText, ErrInvalidInput
	}

	target := t.Target
	if target == "" {
		target = "en"
	}

	detect := t.Detect
	if detect == nil {
		detect = langdetect.Detect
	}
	source, err := detect(text)
	if err != nil {
		log.Printf("Translate: %v; continuing with %q", err, langdetect.Unknown)
		source = langdetect.Unknown
	}

	if !t.ForceOffline && t.Online != nil && t.Prober != nil && t.Prober.Reachable(ctx) {
		translated, err := t.Online.Translate(ctx, text, target)
		if err == nil && strings.TrimSpace(translated) != "" {
			log.Printf("Translate: online result %q", logutil.Sanitize(translated))
			return translated, nil
		}
		if err == nil {
			err = errors.New("empty result")
		}
		log.Printf("Translate: %v: %v; falling back to offline model", ErrOnlineFailed, err)
	}

	if t.Offline == nil {
		return "", fmt.Errorf("%w: no offline backend configured", ErrOfflineFailed)
	}
	translated, err := t.Offline.Translate(ctx, text, source, target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOfflineFailed, err)
	}
	log.Printf("Translate: offline result %q", logutil.Sanitize(translated))
	return translated, nil
}
