// Package tray shows the resident's system tray icon.
package tray

import (
	"log"
	"sync"

	"github.com/getlantern/systray"
)

type Config struct {
	Title   string
	Tooltip string
	OnStart func()
	OnStop  func()
	OnExit  func()
}

var (
	mu      sync.Mutex
	ready   bool
	tooltip string
)

// Run shows the icon and blocks until Quit. On Windows it must be called
// from the goroutine that owns the process's message loop.
func Run(cfg Config) {
	systray.Run(func() { onReady(cfg) }, func() {
		mu.Lock()
		ready = false
		mu.Unlock()
		log.Printf("Tray: exited")
		if cfg.OnExit != nil {
			cfg.OnExit()
		}
	})
}

func onReady(cfg Config) {
	systray.SetIcon(Icon())
	systray.SetTitle(cfg.Title)
	systray.SetTooltip(cfg.Tooltip)

	mStart := systray.AddMenuItem("Start translating", "Capture the start region and begin the click loop")
	mStop := systray.AddMenuItem("Stop", "Stop the running loop")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	mu.Lock()
	ready = true
	if tooltip != "" {
		systray.SetTooltip(tooltip)
	}
	mu.Unlock()
	log.Printf("Tray: ready")

	go func() {
		for {
			select {
			case <-mStart.ClickedCh:
				if cfg.OnStart != nil {
					cfg.OnStart()
				}
			case <-mStop.ClickedCh:
				if cfg.OnStop != nil {
					cfg.OnStop()
				}
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

// UpdateTooltip sets the tooltip now if the icon is shown, otherwise when it
// appears.
func UpdateTooltip(text string) {
	mu.Lock()
	defer mu.Unlock()
	tooltip = text
	if ready {
		systray.SetTooltip(text)
	}
}

func Quit() { systray.Quit() }
