package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Listener dispatches global key combinations to callbacks. Several
// combinations share one gohook event stream.
type Listener struct {
	mu       sync.Mutex
	bindings []*binding
	running  bool
}

type binding struct {
	combo    string
	keys     []keyState
	callback func()
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

func New() *Listener { return &Listener{} }

// Bind registers callback for a combination such as "Ctrl+Alt+T" or
// "NumLock". Callbacks run on the listener goroutine and should return
// quickly.
func (l *Listener) Bind(combo string, callback func()) error {
	var keys []keyState
	for _, name := range parseHotkey(combo) {
		rawcodes := keyNameToRawcodes(name)
		if len(rawcodes) == 0 {
			return fmt.Errorf("cannot map key %q in hotkey %q", name, combo)
		}
		keys = append(keys, keyState{name: name, rawcodes: rawcodes})
	}
	if len(keys) == 0 {
		return fmt.Errorf("no keys in hotkey %q", combo)
	}

	l.mu.Lock()
	l.bindings = append(l.bindings, &binding{combo: combo, keys: keys, callback: callback})
	l.mu.Unlock()
	log.Printf("Hotkey: bound %s %v", combo, parseHotkey(combo))
	return nil
}

// Start begins consuming gohook events on a new goroutine.
func (l *Listener) Start() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}
		for ev := range evChan {
			l.handle(ev.Kind, ev.Rawcode)
		}
		log.Printf("Hotkey: event channel closed")
	}()
}

// Stop ends the gohook event stream.
func (l *Listener) Stop() {
	l.mu.Lock()
	running := l.running
	l.running = false
	l.mu.Unlock()
	if running {
		gohook.End()
	}
}

func (l *Listener) handle(kind uint8, rawcode uint16) {
	if kind != gohook.KeyDown && kind != gohook.KeyUp {
		return
	}

	var fire []*binding
	l.mu.Lock()
	for _, b := range l.bindings {
		if b.update(kind == gohook.KeyDown, rawcode) {
			fire = append(fire, b)
		}
	}
	l.mu.Unlock()

	for _, b := range fire {
		log.Printf("Hotkey: %s activated", b.combo)
		if b.callback != nil {
			b.callback()
		}
	}
}

// update records a key transition and reports whether the whole combination
// is now held. States reset after a match so holding the keys fires once.
func (b *binding) update(down bool, rawcode uint16) bool {
	for i := range b.keys {
		for _, rc := range b.keys[i].rawcodes {
			if rc == rawcode {
				b.keys[i].pressed = down
				break
			}
		}
	}
	if !down {
		return false
	}
	for i := range b.keys {
		if !b.keys[i].pressed {
			return false
		}
	}
	for i := range b.keys {
		b.keys[i].pressed = false
	}
	return true
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

var namedKeys = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},

	// Toggle keys that rarely collide with application shortcuts.
	"numlock":     {144},
	"scrolllock":  {145},
	"pause":       {19},
	"printscreen": {44},
}

// keyNameToRawcodes maps a key name to its Windows virtual key codes.
// Modifiers return both the left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if keyName == "win" || keyName == "super" {
		keyName = "cmd"
	}
	if codes, ok := namedKeys[keyName]; ok {
		return codes
	}

	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48}
		}
	}

	var n int
	if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && n >= 1 && n <= 24 && keyName == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)} // VK_F1 = 112
	}

	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
